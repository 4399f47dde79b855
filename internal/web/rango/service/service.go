// Package service implements the rango business rules on top of the dao.
package service

import (
	"context"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/dao"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

const (
	// IndexLimit is how many categories and pages the index lists.
	IndexLimit = 5
	// MaxSuggestions caps SuggestCategories.
	MaxSuggestions = 8
)

// Clock returns the current time. Tests can replace it for determinism.
type Clock func() time.Time

// Rango exposes category, page and profile operations.
type Rango struct {
	dao    *dao.Rango
	logger logSDK.Logger
	clock  Clock
}

// Index is what the landing page shows.
type Index struct {
	Categories []model.Category
	Pages      []model.Page
}

// CategoryDetail is a category with its pages, most viewed first.
type CategoryDetail struct {
	Category *model.Category
	Pages    []model.Page
}

// New constructs a Rango service.
func New(d *dao.Rango, logger logSDK.Logger, clock Clock) (*Rango, error) {
	if d == nil {
		return nil, errors.New("dao is required")
	}
	if logger == nil {
		logger = log.Logger.Named("rango_service")
	}
	if clock == nil {
		clock = func() time.Time {
			return time.Now().UTC()
		}
	}

	return &Rango{dao: d, logger: logger, clock: clock}, nil
}

// Now returns the service clock's current time.
func (s *Rango) Now() time.Time {
	return s.clock()
}

// Index loads the most liked categories and the most viewed pages.
func (s *Rango) Index(ctx context.Context) (*Index, error) {
	idx := new(Index)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		idx.Categories, err = s.dao.TopCategories(gctx, IndexLimit)
		return err
	})
	g.Go(func() (err error) {
		idx.Pages, err = s.dao.TopPages(gctx, IndexLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "load index")
	}

	return idx, nil
}

// GetCategory returns the category identified by slug with its pages.
func (s *Rango) GetCategory(ctx context.Context, slug string) (*CategoryDetail, error) {
	cat, err := s.dao.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	pages, err := s.dao.PagesByCategory(ctx, cat.ID)
	if err != nil {
		return nil, err
	}

	return &CategoryDetail{Category: cat, Pages: pages}, nil
}

// AddCategory creates a category named name.
func (s *Rango) AddCategory(ctx context.Context, name string) (*model.Category, error) {
	name, slug, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	exists, err := s.dao.CategoryExists(ctx, name, slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateCategory, "name %q", name)
	}

	cat := &model.Category{Name: name}
	if err := s.dao.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}

	s.logger.Info("category created",
		zap.Uint("category_id", cat.ID),
		zap.String("slug", cat.Slug))
	return cat, nil
}

// AddPage files a new page under the category identified by slug.
func (s *Rango) AddPage(ctx context.Context, slug, title, link string) (*model.Page, error) {
	cat, err := s.dao.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	title, link, err = validatePage(title, link)
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		CategoryID: cat.ID,
		Title:      title,
		URL:        link,
		LastVisit:  s.clock(),
	}
	if err := s.dao.CreatePage(ctx, page); err != nil {
		return nil, err
	}

	s.logger.Info("page created",
		zap.Uint("page_id", page.ID),
		zap.String("category", cat.Slug))
	return page, nil
}

// GotoPage counts a click-through on the page and returns its URL.
func (s *Rango) GotoPage(ctx context.Context, pageID uint, now time.Time) (string, error) {
	page, err := s.dao.GetPage(ctx, pageID)
	if err != nil {
		return "", notFound(err, ErrPageNotFound)
	}

	if err := s.dao.RecordPageVisit(ctx, page.ID, now); err != nil {
		return "", notFound(err, ErrPageNotFound)
	}

	return page.URL, nil
}

// LikeCategory adds one like and returns the new total.
func (s *Rango) LikeCategory(ctx context.Context, categoryID uint) (int, error) {
	likes, err := s.dao.IncrCategoryLikes(ctx, categoryID)
	if err != nil {
		return 0, notFound(err, ErrCategoryNotFound)
	}
	return likes, nil
}

// SuggestCategories returns at most MaxSuggestions categories whose name
// starts with prefix, ignoring case. An empty prefix lists all categories.
func (s *Rango) SuggestCategories(ctx context.Context, prefix string) ([]model.Category, error) {
	return s.dao.CategoriesByPrefix(ctx, strings.TrimSpace(prefix), MaxSuggestions)
}

// SearchAddPage files a search result under the category unless an
// identical page already exists, then returns the category's pages.
func (s *Rango) SearchAddPage(ctx context.Context, categoryID uint, title, link string) ([]model.Page, error) {
	cat, err := s.dao.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	title, link, err = validatePage(title, link)
	if err != nil {
		return nil, err
	}

	page := &model.Page{CategoryID: cat.ID, Title: title, URL: link, LastVisit: s.clock()}
	created, err := s.dao.FirstOrCreatePage(ctx, page)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("page added from search",
			zap.Uint("page_id", page.ID),
			zap.String("category", cat.Slug))
	}

	return s.dao.PagesByCategory(ctx, cat.ID)
}

// notFound replaces gorm.ErrRecordNotFound with sentinel and keeps other errors.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(sentinel, err.Error())
	}
	return err
}
