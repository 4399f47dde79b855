// Package dao contains the rango data access object.
package dao

import (
	"context"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

// Rango dao type
type Rango struct {
	logger logSDK.Logger
	db     *gorm.DB
}

// New create new dao
func New(logger logSDK.Logger, db *gorm.DB) (*Rango, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if logger == nil {
		logger = log.Logger.Named("rango_dao")
	}

	return &Rango{logger: logger, db: db}, nil
}

// DB returns the underlying connection bound to ctx.
func (d *Rango) DB(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// Transaction runs fn inside a database transaction.
func (d *Rango) Transaction(ctx context.Context, fn func(tx *Rango) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Rango{logger: d.logger, db: tx})
	})
}

// TopCategories returns up to limit categories, most liked first.
func (d *Rango) TopCategories(ctx context.Context, limit int) ([]model.Category, error) {
	cats := make([]model.Category, 0, limit)
	if err := d.DB(ctx).
		Order("likes DESC").Order("id ASC").
		Limit(limit).
		Find(&cats).Error; err != nil {
		return nil, errors.Wrap(err, "list top categories")
	}
	return cats, nil
}

// TopPages returns up to limit pages, most viewed first.
func (d *Rango) TopPages(ctx context.Context, limit int) ([]model.Page, error) {
	pages := make([]model.Page, 0, limit)
	if err := d.DB(ctx).
		Order("views DESC").Order("id ASC").
		Limit(limit).
		Find(&pages).Error; err != nil {
		return nil, errors.Wrap(err, "list top pages")
	}
	return pages, nil
}

// GetCategoryBySlug loads one category. Missing rows return gorm.ErrRecordNotFound.
func (d *Rango) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	cat := new(model.Category)
	if err := d.DB(ctx).Where("slug = ?", slug).Take(cat).Error; err != nil {
		return nil, errors.Wrapf(err, "get category by slug %q", slug)
	}
	return cat, nil
}

// GetCategoryByID loads one category. Missing rows return gorm.ErrRecordNotFound.
func (d *Rango) GetCategoryByID(ctx context.Context, id uint) (*model.Category, error) {
	cat := new(model.Category)
	if err := d.DB(ctx).Take(cat, id).Error; err != nil {
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	return cat, nil
}

// CategoryExists reports whether a category already uses name or slug.
func (d *Rango) CategoryExists(ctx context.Context, name, slug string) (bool, error) {
	var n int64
	if err := d.DB(ctx).Model(&model.Category{}).
		Where("name = ? OR slug = ?", name, slug).
		Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "count categories")
	}
	return n > 0, nil
}

// CreateCategory inserts cat.
func (d *Rango) CreateCategory(ctx context.Context, cat *model.Category) error {
	if err := d.DB(ctx).Create(cat).Error; err != nil {
		return errors.Wrapf(err, "create category %q", cat.Name)
	}
	return nil
}

// IncrCategoryLikes adds one like and returns the new total.
func (d *Rango) IncrCategoryLikes(ctx context.Context, id uint) (int, error) {
	res := d.DB(ctx).Model(&model.Category{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "like category %d", id)
	}
	if res.RowsAffected == 0 {
		return 0, errors.Wrapf(gorm.ErrRecordNotFound, "like category %d", id)
	}

	cat, err := d.GetCategoryByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return cat.Likes, nil
}

// CategoriesByPrefix returns categories whose name starts with prefix,
// ignoring case, ordered by name. An empty prefix matches everything.
func (d *Rango) CategoriesByPrefix(ctx context.Context, prefix string, limit int) ([]model.Category, error) {
	q := d.DB(ctx).Model(&model.Category{})
	if prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}

	cats := make([]model.Category, 0)
	if err := q.Order("name ASC").Limit(limit).Find(&cats).Error; err != nil {
		return nil, errors.Wrap(err, "list categories by prefix")
	}
	return cats, nil
}

// PagesByCategory returns the category's pages, most viewed first.
func (d *Rango) PagesByCategory(ctx context.Context, categoryID uint) ([]model.Page, error) {
	pages := make([]model.Page, 0)
	if err := d.DB(ctx).
		Where("category_id = ?", categoryID).
		Order("views DESC").Order("id ASC").
		Find(&pages).Error; err != nil {
		return nil, errors.Wrapf(err, "list pages of category %d", categoryID)
	}
	return pages, nil
}

// CreatePage inserts page.
func (d *Rango) CreatePage(ctx context.Context, page *model.Page) error {
	if err := d.DB(ctx).Create(page).Error; err != nil {
		return errors.Wrapf(err, "create page %q", page.Title)
	}
	return nil
}

// FirstOrCreatePage returns the page matching (category, title, url),
// creating it when absent. created reports whether a row was inserted.
func (d *Rango) FirstOrCreatePage(ctx context.Context, page *model.Page) (created bool, err error) {
	err = d.DB(ctx).
		Where("category_id = ? AND title = ? AND url = ?", page.CategoryID, page.Title, page.URL).
		Take(page).Error
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, errors.Wrapf(err, "find page %q", page.Title)
	}

	if err = d.CreatePage(ctx, page); err != nil {
		return false, err
	}
	return true, nil
}

// GetPage loads one page. Missing rows return gorm.ErrRecordNotFound.
func (d *Rango) GetPage(ctx context.Context, id uint) (*model.Page, error) {
	page := new(model.Page)
	if err := d.DB(ctx).Take(page, id).Error; err != nil {
		return nil, errors.Wrapf(err, "get page %d", id)
	}
	return page, nil
}

// RecordPageVisit bumps the view counter and stamps LastVisit with at.
func (d *Rango) RecordPageVisit(ctx context.Context, id uint, at time.Time) error {
	res := d.DB(ctx).Model(&model.Page{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"views":      gorm.Expr("views + 1"),
			"last_visit": at,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "record visit of page %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "record visit of page %d", id)
	}
	return nil
}

// GetUserByUsername loads one user. Missing rows return gorm.ErrRecordNotFound.
func (d *Rango) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user := new(model.User)
	if err := d.DB(ctx).Where("username = ?", username).Take(user).Error; err != nil {
		return nil, errors.Wrapf(err, "get user %q", username)
	}
	return user, nil
}

// CreateUser inserts user.
func (d *Rango) CreateUser(ctx context.Context, user *model.User) error {
	if err := d.DB(ctx).Create(user).Error; err != nil {
		return errors.Wrapf(err, "create user %q", user.Username)
	}
	return nil
}

// GetProfileByUserID loads a profile with its user. Missing rows return gorm.ErrRecordNotFound.
func (d *Rango) GetProfileByUserID(ctx context.Context, userID uint) (*model.UserProfile, error) {
	profile := new(model.UserProfile)
	if err := d.DB(ctx).Preload("User").Where("user_id = ?", userID).Take(profile).Error; err != nil {
		return nil, errors.Wrapf(err, "get profile of user %d", userID)
	}
	return profile, nil
}

// CreateProfile inserts profile.
func (d *Rango) CreateProfile(ctx context.Context, profile *model.UserProfile) error {
	if err := d.DB(ctx).Omit(clause.Associations).Create(profile).Error; err != nil {
		return errors.Wrapf(err, "create profile of user %d", profile.UserID)
	}
	return nil
}

// UpdateProfile overwrites the editable profile fields.
func (d *Rango) UpdateProfile(ctx context.Context, profile *model.UserProfile) error {
	if err := d.DB(ctx).Model(profile).
		Select("website", "picture").
		Updates(model.UserProfile{Website: profile.Website, Picture: profile.Picture}).Error; err != nil {
		return errors.Wrapf(err, "update profile %d", profile.ID)
	}
	return nil
}

// ListProfiles returns every profile with its user, ordered by username.
func (d *Rango) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	profiles := make([]model.UserProfile, 0)
	if err := d.DB(ctx).
		Joins("User").
		Order(clause.OrderByColumn{Column: clause.Column{Table: "User", Name: "username"}}).
		Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "list profiles")
	}
	return profiles, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
