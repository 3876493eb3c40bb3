package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hpungsan/drill/internal/config"
	"github.com/hpungsan/drill/internal/db"
	"github.com/hpungsan/drill/internal/ops"
	"github.com/hpungsan/drill/internal/review"
)

const riverPassage = "The river town grew slowly during the early years of the century. Farmers brought their grain to the mill because the roads to the city were long and often flooded. However, the arrival of the railway changed everything within a single decade. Merchants opened new shops along the main street, and they hired young workers from the surrounding villages. The old ferry, which had carried passengers for generations, soon fell out of use. Families who had lived by the water for many years moved closer to the station. Meanwhile, the town council debated whether the mill should be preserved or replaced with a modern factory. Some members argued that history deserved protection, while others believed progress required sacrifice. After months of discussion, they reached a compromise that kept the building standing but changed its purpose. Today the mill houses a small museum, and visitors still walk along the quiet riverbank where the story began."

func setupTest(t *testing.T) (*Handlers, http.Handler) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}

	h := &Handlers{
		db:       database,
		cfg:      config.DefaultConfig(),
		renderer: NewRenderer(templateSub, "test"),
	}
	return h, h.routes(staticSub)
}

// seedPassage ingests text under title/genre and returns the passage ID.
func seedPassage(t *testing.T, h *Handlers, text, title, genre string) string {
	t.Helper()
	out, err := ops.Ingest(context.Background(), h.db, h.cfg, ops.IngestInput{
		Text: text, SourceType: "book", Title: title, Author: "A. Writer", Genre: genre,
	})
	if err != nil {
		t.Fatalf("seed passage %q: %v", title, err)
	}
	return out.PassageIDs[0]
}

func seedReview(t *testing.T, h *Handlers, itemID, day string) {
	t.Helper()
	d, err := review.ParseDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.NewReviewStore(h.db).Save(context.Background(), review.Register(itemID, "s1", d)); err != nil {
		t.Fatalf("seed review: %v", err)
	}
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRootRedirects(t *testing.T) {
	_, mux := setupTest(t)

	rec := serve(mux, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/passages" {
		t.Errorf("GET / = %d %q, want 302 /passages", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHandleList(t *testing.T) {
	h, mux := setupTest(t)
	seedPassage(t, h, riverPassage, "River Towns", "history")
	seedPassage(t, h, strings.Replace(riverPassage, "river town", "harbor town", 1), "Harbor Tales", "fiction")

	rec := serve(mux, httptest.NewRequest("GET", "/passages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"River Towns", "Harbor Tales", "history (1)", "fiction (1)"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}

	rec = serve(mux, httptest.NewRequest("GET", "/passages?genre=fiction", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "Harbor Tales") {
		t.Error("expected fiction passage in filtered results")
	}
	if strings.Contains(body, ">River Towns<") {
		t.Error("did not expect history passage in filtered results")
	}
}

func TestHandleList_JSON(t *testing.T) {
	h, mux := setupTest(t)
	seedPassage(t, h, riverPassage, "River Towns", "history")

	req := httptest.NewRequest("GET", "/passages?limit=1", nil)
	req.Header.Set("Accept", "application/json")
	rec := serve(mux, req)

	var out ops.ListPassagesOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Pagination.Total != 1 || len(out.Items) != 1 {
		t.Errorf("got %d items of %d, want 1 of 1", len(out.Items), out.Pagination.Total)
	}
}

func TestHandleDetail(t *testing.T) {
	h, mux := setupTest(t)
	id := seedPassage(t, h, riverPassage, "River Towns", "history")
	if _, err := ops.AddItems(context.Background(), h.db, ops.AddItemsInput{Items: []ops.ItemSpec{
		{ID: "q-mill", PassageID: id, Difficulty: "medium", Payload: json.RawMessage(`{"prompt":"What is the mill today?"}`)},
	}}); err != nil {
		t.Fatalf("add items: %v", err)
	}

	rec := serve(mux, httptest.NewRequest("GET", "/passages/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>River Towns</h1>", "<p>The river town grew slowly", "q-mill", "What is the mill today?", "A. Writer"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in detail page", want)
		}
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	_, mux := setupTest(t)

	rec := serve(mux, httptest.NewRequest("GET", "/passages/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "passage not found: missing") {
		t.Error("expected not-found message in error page")
	}

	req := httptest.NewRequest("GET", "/passages/missing", nil)
	req.Header.Set("Accept", "application/json")
	rec = serve(mux, req)
	var payload map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["error"]["code"])
	}
}

func TestHandleReviews(t *testing.T) {
	h, mux := setupTest(t)
	seedReview(t, h, "q-due", "2026-05-01")
	seedReview(t, h, "q-later", "2026-06-01")

	rec := serve(mux, httptest.NewRequest("GET", "/reviews?today=2026-05-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "q-due") {
		t.Error("expected due item")
	}
	if strings.Contains(body, "q-later") {
		t.Error("did not expect future item")
	}

	rec = serve(mux, httptest.NewRequest("GET", "/reviews?today=soon", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleGradeReview(t *testing.T) {
	h, mux := setupTest(t)
	seedReview(t, h, "q1", "2026-05-01")

	rec := serve(mux, postForm("/reviews/q1/grade", url.Values{"grade": {"4"}, "today": {"2026-05-01"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/reviews?today=2026-05-01" {
		t.Errorf("Location = %q", loc)
	}

	r, err := db.NewReviewStore(h.db).Get(context.Background(), "q1")
	if err != nil {
		t.Fatal(err)
	}
	if r.RepetitionCount != 1 || r.NextReviewDate.Format("2006-01-02") != "2026-05-02" {
		t.Errorf("record after grade = %+v", r)
	}

	rec = serve(mux, postForm("/reviews/q1/grade", url.Values{"grade": {"high"}}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric grade status = %d, want 400", rec.Code)
	}

	req := postForm("/reviews/q1/grade", url.Values{"grade": {"1"}, "today": {"2026-05-02"}})
	req.Header.Set("Accept", "application/json")
	rec = serve(mux, req)
	var out ops.GradeReviewOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Passed || out.Record.RepetitionCount != 0 {
		t.Errorf("failing grade output = %+v", out)
	}
}

func TestHandleRemoveReview(t *testing.T) {
	h, mux := setupTest(t)
	seedReview(t, h, "q1", "2026-05-01")

	rec := serve(mux, postForm("/reviews/q1/remove", url.Values{}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/reviews" {
		t.Fatalf("remove = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = serve(mux, postForm("/reviews/q1/remove", url.Values{}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}

func TestHandleProgress(t *testing.T) {
	h, mux := setupTest(t)
	seedPassage(t, h, riverPassage, "River Towns", "history")
	seedReview(t, h, "q1", "2026-05-01")

	rec := serve(mux, httptest.NewRequest("GET", "/progress?today=2026-05-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"No graded sessions yet", "20 / 50 / 30", "1 passages", "history"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in progress page", want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := setupTest(t)
	srv, err := NewServer(h.db, h.cfg, "test", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(srv.Handler, httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("static status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("missing Content-Security-Policy")
	}
}

func TestRenderMarkdown_EscapesHTML(t *testing.T) {
	got := string(renderMarkdown("Plain <script>alert(1)</script> text."))
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML passed through: %s", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	if got := prettyJSON(json.RawMessage(`{"a":1}`)); got != "{\n  \"a\": 1\n}" {
		t.Errorf("prettyJSON = %q", got)
	}
	if got := prettyJSON(nil); got != "" {
		t.Errorf("prettyJSON(nil) = %q", got)
	}
}
