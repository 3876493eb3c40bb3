package web

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /passages: list passages, optionally by genre.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	genre := r.URL.Query().Get("genre")

	result, err := ops.ListPassages(r.Context(), h.db, ops.ListPassagesInput{
		Genre:  genre,
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	genres, err := db.PassageGenres(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Passages",
			Version: h.renderer.version,
			Nav:     "passages",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Genre:      genre,
		Genres:     genres,
	})
}

// HandleDetail handles GET /passages/{id}: one passage with its items.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := ops.FetchPassage(r.Context(), h.db, ops.FetchPassageInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, p)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   p.SourceTitle,
			Version: h.renderer.version,
			Nav:     "passages",
		},
		Passage:      p,
		RenderedHTML: renderMarkdown(p.Text),
	})
}

// HandleReviews handles GET /reviews: items due for review.
func (h *Handlers) HandleReviews(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DueReviews(r.Context(), h.db, h.cfg, ops.DueReviewsInput{
		Today: r.URL.Query().Get("today"),
		Limit: parseIntParam(r, "limit", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "reviews", ReviewsPageData{
		PageData: PageData{
			Title:   "Reviews",
			Version: h.renderer.version,
			Nav:     "reviews",
		},
		Today: result.Today,
		Due:   result.Due,
		Items: result.Items,
	})
}

// HandleGradeReview handles POST /reviews/{item_id}/grade: record a 0-5 recall grade.
func (h *Handlers) HandleGradeReview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	grade, err := strconv.Atoi(r.FormValue("grade"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("grade must be an integer 0-5"))
		return
	}

	result, err := ops.GradeReview(r.Context(), h.db, ops.GradeReviewInput{
		ItemID: r.PathValue("item_id"),
		Grade:  grade,
		Today:  r.FormValue("today"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, reviewsURL(r.FormValue("today")), http.StatusSeeOther)
}

// HandleRemoveReview handles POST /reviews/{item_id}/remove: stop reviewing an item.
func (h *Handlers) HandleRemoveReview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.RemoveReview(r.Context(), h.db, ops.RemoveReviewInput{ItemID: r.PathValue("item_id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, reviewsURL(r.FormValue("today")), http.StatusSeeOther)
}

// HandleProgress handles GET /progress: accuracy, recommended mix and library totals.
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Progress(r.Context(), h.db, h.cfg, ops.ProgressInput{
		Today: r.URL.Query().Get("today"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "progress", ProgressPageData{
		PageData: PageData{
			Title:   "Progress",
			Version: h.renderer.version,
			Nav:     "progress",
		},
		Progress: result,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// reviewsURL returns the reviews page, keeping an explicit review date.
func reviewsURL(today string) string {
	if today == "" {
		return "/reviews"
	}
	return "/reviews?today=" + url.QueryEscape(today)
}
