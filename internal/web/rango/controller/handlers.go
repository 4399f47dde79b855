package controller

import (
	"net/http"
	"strconv"

	errors "github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/dto"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/service"
	"github.com/z-Shi/TangoWithDjango/library/search"
)

type categoryForm struct {
	Name string `form:"name" json:"name"`
}

type pageForm struct {
	Title string `form:"title" json:"title"`
	URL   string `form:"url" json:"url"`
}

type queryForm struct {
	Query string `form:"query" json:"query"`
}

type profileForm struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Website  string `form:"website" json:"website"`
	Picture  string `form:"picture" json:"picture"`
}

// Index lists the top categories and pages and counts the visit.
func (ctl *Controller) Index(c *gin.Context) {
	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	idx, err := ctl.svc.Index(ctx)
	if err != nil {
		ctl.writeError(c, "index", err)
		return
	}

	visits, err := ctl.trackVisit(c)
	if err != nil {
		ctl.writeError(c, "index", err)
		return
	}

	categories, err := dto.NewCategories(idx.Categories)
	if err != nil {
		ctl.writeError(c, "index", err)
		return
	}
	pages, err := dto.NewPages(idx.Pages)
	if err != nil {
		ctl.writeError(c, "index", err)
		return
	}

	c.JSON(http.StatusOK, dto.Index{
		BoldMessage: dto.BoldMessage,
		Categories:  categories,
		Pages:       pages,
		Visits:      visits,
	})
}

// About reports the visit count.
func (ctl *Controller) About(c *gin.Context) {
	visits, err := ctl.trackVisit(c)
	if err != nil {
		ctl.writeError(c, "about", err)
		return
	}

	c.JSON(http.StatusOK, dto.About{Visits: visits})
}

// ShowCategory returns a category with its pages. A POST with a non-blank
// query also runs a web search.
func (ctl *Controller) ShowCategory(c *gin.Context) {
	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	detail, err := ctl.svc.GetCategory(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			c.JSON(http.StatusOK, dto.CategoryDetail{})
			return
		}
		ctl.writeError(c, "show category", err)
		return
	}

	out := dto.CategoryDetail{ResultList: []search.SearchResult{}}
	if out.Category, err = dto.NewCategory(detail.Category); err != nil {
		ctl.writeError(c, "show category", err)
		return
	}
	if out.Pages, err = dto.NewPages(detail.Pages); err != nil {
		ctl.writeError(c, "show category", err)
		return
	}

	if c.Request.Method == http.MethodPost {
		var form queryForm
		if err := c.ShouldBind(&form); err != nil {
			ctl.writeError(c, "show category", badRequest("invalid form: %v", err))
			return
		}

		if out.Query, out.ResultList, err = ctl.runSearch(ctx, c, form.Query); err != nil {
			ctl.writeError(c, "show category", err)
			return
		}
	}

	c.JSON(http.StatusOK, out)
}

// AddCategory creates a category.
func (ctl *Controller) AddCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		ctl.writeError(c, "add category", badRequest("invalid form: %v", err))
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	cat, err := ctl.svc.AddCategory(ctx, form.Name)
	if err != nil {
		ctl.writeError(c, "add category", err)
		return
	}

	out, err := dto.NewCategory(cat)
	if err != nil {
		ctl.writeError(c, "add category", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// AddPage files a page under the category in the path.
func (ctl *Controller) AddPage(c *gin.Context) {
	var form pageForm
	if err := c.ShouldBind(&form); err != nil {
		ctl.writeError(c, "add page", badRequest("invalid form: %v", err))
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	page, err := ctl.svc.AddPage(ctx, c.Param("slug"), form.Title, form.URL)
	if err != nil {
		ctl.writeError(c, "add page", err)
		return
	}

	out, err := dto.NewPage(page)
	if err != nil {
		ctl.writeError(c, "add page", err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// Goto counts a click-through and redirects to the page URL.
func (ctl *Controller) Goto(c *gin.Context) {
	pageID, err := parseID(c.Query("page_id"), "page_id")
	if err != nil {
		ctl.writeError(c, "goto", err)
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	link, err := ctl.svc.GotoPage(ctx, pageID, ctl.clock())
	if err != nil {
		ctl.writeError(c, "goto", err)
		return
	}

	c.Redirect(http.StatusFound, link)
}

// LikeCategory adds a like and answers with the new total as plain text.
func (ctl *Controller) LikeCategory(c *gin.Context) {
	categoryID, err := parseID(c.Query("category_id"), "category_id")
	if err != nil {
		ctl.writeError(c, "like category", err)
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	likes, err := ctl.svc.LikeCategory(ctx, categoryID)
	if err != nil {
		ctl.writeError(c, "like category", err)
		return
	}

	c.String(http.StatusOK, strconv.Itoa(likes))
}

// Suggest lists categories whose name starts with the suggestion.
func (ctl *Controller) Suggest(c *gin.Context) {
	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	cats, err := ctl.svc.SuggestCategories(ctx, c.Query("suggestion"))
	if err != nil {
		ctl.writeError(c, "suggest", err)
		return
	}

	out, err := dto.NewCategories(cats)
	if err != nil {
		ctl.writeError(c, "suggest", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// SearchAddPage files a search hit under a category and returns its pages.
func (ctl *Controller) SearchAddPage(c *gin.Context) {
	categoryID, err := parseID(c.Query("categoryId"), "categoryId")
	if err != nil {
		ctl.writeError(c, "search add page", err)
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	pages, err := ctl.svc.SearchAddPage(ctx, categoryID, c.Query("title"), c.Query("url"))
	if err != nil {
		ctl.writeError(c, "search add page", err)
		return
	}

	out, err := dto.NewPages(pages)
	if err != nil {
		ctl.writeError(c, "search add page", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": out})
}

// Search runs a standalone web search.
func (ctl *Controller) Search(c *gin.Context) {
	var form queryForm
	if err := c.ShouldBind(&form); err != nil {
		ctl.writeError(c, "search", badRequest("invalid form: %v", err))
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	query, results, err := ctl.runSearch(ctx, c, form.Query)
	if err != nil {
		ctl.writeError(c, "search", err)
		return
	}

	c.JSON(http.StatusOK, search.ResultList{Query: query, Results: results})
}

// RegisterProfile creates a user and its profile.
func (ctl *Controller) RegisterProfile(c *gin.Context) {
	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		ctl.writeError(c, "register profile", badRequest("invalid form: %v", err))
		return
	}

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	profile, err := ctl.svc.RegisterProfile(ctx, service.ProfileForm(form))
	if err != nil {
		ctl.writeError(c, "register profile", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewProfile(profile))
}

// Profile shows one profile.
func (ctl *Controller) Profile(c *gin.Context) {
	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	profile, err := ctl.svc.GetProfile(ctx, c.Param("username"))
	if err != nil {
		ctl.writeError(c, "profile", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProfile(profile))
}

// UpdateProfile edits the website and picture of the profile in the path.
func (ctl *Controller) UpdateProfile(c *gin.Context) {
	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		ctl.writeError(c, "update profile", badRequest("invalid form: %v", err))
		return
	}
	form.Username = c.Param("username")

	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	profile, err := ctl.svc.UpdateProfile(ctx, service.ProfileForm(form))
	if err != nil {
		ctl.writeError(c, "update profile", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProfile(profile))
}

// ListProfiles lists every profile.
func (ctl *Controller) ListProfiles(c *gin.Context) {
	ctx, cancel := ctl.requestContext(c)
	defer cancel()

	profiles, err := ctl.svc.ListProfiles(ctx)
	if err != nil {
		ctl.writeError(c, "list profiles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": dto.NewProfiles(profiles)})
}
