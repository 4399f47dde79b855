// Package model defines the rango database schema.
package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	// MaxCategoryNameLength caps Category.Name.
	MaxCategoryNameLength = 128
	// MaxPageTitleLength caps Page.Title.
	MaxPageTitleLength = 128
	// MaxPageURLLength caps Page.URL.
	MaxPageURLLength = 200
	// MaxUsernameLength caps User.Username.
	MaxUsernameLength = 150
	// MaxWebsiteLength caps UserProfile.Website.
	MaxWebsiteLength = 200
)

// Category groups pages under a unique name.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(128);not null;uniqueIndex"`
	Slug      string `gorm:"type:varchar(128);not null;uniqueIndex"`
	Views     int    `gorm:"not null;default:0"`
	Likes     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Category) TableName() string {
	return "rango_categories"
}

// BeforeSave derives the slug from the name and keeps counters non-negative.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Slug = Slugify(c.Name)
	if c.Views < 0 {
		c.Views = 0
	}
	if c.Likes < 0 {
		c.Likes = 0
	}
	return nil
}

// Page is a link filed under a category.
type Page struct {
	ID         uint      `gorm:"primaryKey"`
	CategoryID uint      `gorm:"not null;index"`
	Category   *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Title      string    `gorm:"type:varchar(128);not null"`
	URL        string    `gorm:"type:varchar(200);not null"`
	Views      int       `gorm:"not null;default:0;index"`
	LastVisit  time.Time `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName pins the table name.
func (Page) TableName() string {
	return "rango_pages"
}

// BeforeSave keeps views non-negative and stamps LastVisit on first save.
func (p *Page) BeforeSave(tx *gorm.DB) error {
	if p.Views < 0 {
		p.Views = 0
	}
	if p.LastVisit.IsZero() {
		p.LastVisit = tx.NowFunc()
	}
	return nil
}

// User is the minimal account a profile hangs off.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email     string `gorm:"type:varchar(254);not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (User) TableName() string {
	return "rango_users"
}

// UserProfile holds the optional details a user registers.
type UserProfile struct {
	ID     uint  `gorm:"primaryKey"`
	UserID uint  `gorm:"not null;uniqueIndex"`
	User   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	// Website is an absolute URL or empty.
	Website string `gorm:"type:varchar(200);not null;default:''"`
	// Picture is a path or URL; uploads are handled elsewhere.
	Picture   string `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (UserProfile) TableName() string {
	return "rango_user_profiles"
}

// All lists every model, in dependency order, for migrations.
func All() []any {
	return []any{&Category{}, &Page{}, &User{}, &UserProfile{}}
}

// Migrate creates or updates every rango table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
