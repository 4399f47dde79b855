package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T, now func() time.Time) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		NowFunc: now,
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Random Category String": "random-category-string",
		"Python":                 "python",
		"C++":                    "c",
		"  Other   Frameworks ":  "other-frameworks",
		"Crème Brûlée":           "creme-brulee",
		"snake_case-and--dash":   "snake_case-and-dash",
		"__edge__":               "edge",
		"!!!":                    "",
		"日本語":                    "",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "slugify %q", in)
	}
}

func TestCategorySaveDerivesSlugAndClamps(t *testing.T) {
	db := newTestDB(t, time.Now)

	cat := &Category{Name: "Random Category String", Views: -1, Likes: -5}
	require.NoError(t, db.Create(cat).Error)
	require.Equal(t, "random-category-string", cat.Slug)
	require.Zero(t, cat.Views)
	require.Zero(t, cat.Likes)

	cat.Name = "Renamed"
	cat.Views = -3
	require.NoError(t, db.Save(cat).Error)

	var got Category
	require.NoError(t, db.First(&got, cat.ID).Error)
	require.Equal(t, "renamed", got.Slug)
	require.Zero(t, got.Views)
}

func TestCategoryUniqueness(t *testing.T) {
	db := newTestDB(t, time.Now)

	require.NoError(t, db.Create(&Category{Name: "Go"}).Error)
	require.Error(t, db.Create(&Category{Name: "Go"}).Error)
	// different name, same slug
	require.Error(t, db.Create(&Category{Name: "go!"}).Error)
}

func TestPageLastVisitDefaultsToNow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	db := newTestDB(t, func() time.Time { return now })

	cat := &Category{Name: "Java", Views: 99, Likes: 99}
	require.NoError(t, db.Create(cat).Error)

	page := &Page{CategoryID: cat.ID, Title: "Ultimate Java", URL: "https://codewithmosh.com/p/the-ultimate-java-mastery-series", Views: -2}
	require.NoError(t, db.Create(page).Error)
	require.True(t, page.LastVisit.Equal(now))
	require.False(t, page.LastVisit.After(now))
	require.Zero(t, page.Views)

	explicit := now.Add(-time.Hour)
	other := &Page{CategoryID: cat.ID, Title: "Older", URL: "https://example.com", LastVisit: explicit}
	require.NoError(t, db.Create(other).Error)
	require.True(t, other.LastVisit.Equal(explicit))
}
