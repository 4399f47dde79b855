// Package dto defines the JSON shapes the rango HTTP API returns.
package dto

import (
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/library/search"
)

// BoldMessage is the tagline shown on the index.
const BoldMessage = "Crunchy, creamy, cookie, candy, cupcake!"

// Category category response
type Category struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Views int    `json:"views"`
	Likes int    `json:"likes"`
}

// Page page response
type Page struct {
	ID         uint      `json:"id"`
	CategoryID uint      `json:"category_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Views      int       `json:"views"`
	LastVisit  time.Time `json:"last_visit"`
}

// Profile user profile response
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Picture  string `json:"picture"`
}

// Index is the landing page body.
type Index struct {
	BoldMessage string     `json:"boldmessage"`
	Categories  []Category `json:"categories"`
	Pages       []Page     `json:"pages"`
	Visits      int        `json:"visits"`
}

// About is the about page body.
type About struct {
	Visits int `json:"visits"`
}

// CategoryDetail is the category page body. Category and Pages are null
// for an unknown slug.
type CategoryDetail struct {
	Category   *Category             `json:"category"`
	Pages      []Page                `json:"pages"`
	Query      string                `json:"query,omitempty"`
	ResultList []search.SearchResult `json:"result_list"`
}

// NewCategory copies a category model.
func NewCategory(m *model.Category) (*Category, error) {
	out := new(Category)
	if err := copier.Copy(out, m); err != nil {
		return nil, errors.Wrap(err, "copy category")
	}
	return out, nil
}

// NewCategories copies category models, never returning nil.
func NewCategories(ms []model.Category) ([]Category, error) {
	out := make([]Category, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}
	if err := copier.Copy(&out, &ms); err != nil {
		return nil, errors.Wrap(err, "copy categories")
	}
	return out, nil
}

// NewPage copies a page model.
func NewPage(m *model.Page) (*Page, error) {
	out := new(Page)
	if err := copier.Copy(out, m); err != nil {
		return nil, errors.Wrap(err, "copy page")
	}
	return out, nil
}

// NewPages copies page models, never returning nil.
func NewPages(ms []model.Page) ([]Page, error) {
	out := make([]Page, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}
	if err := copier.Copy(&out, &ms); err != nil {
		return nil, errors.Wrap(err, "copy pages")
	}
	return out, nil
}

// NewProfile flattens a profile and its user.
func NewProfile(m *model.UserProfile) *Profile {
	out := &Profile{Website: m.Website, Picture: m.Picture}
	if m.User != nil {
		out.Username = m.User.Username
		out.Email = m.User.Email
	}
	return out
}

// NewProfiles flattens profiles.
func NewProfiles(ms []model.UserProfile) []Profile {
	out := make([]Profile, 0, len(ms))
	for i := range ms {
		out = append(out, *NewProfile(&ms[i]))
	}
	return out
}
