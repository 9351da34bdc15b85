package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/Vishnukv66991/pyshort/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex   = "index.html"
	pageSuccess = "success.html"
	pageStats   = "stats.html"
	pageError   = "error.html"
)

type indexPage struct {
	Error  string
	Recent []*entity.Link
}

type successPage struct {
	ShortURL  string
	Code      string
	LongURL   string
	ExpiresAt *time.Time
}

type statsPage struct {
	*entity.LinkView
	ShortURL string
}

type errorPage struct {
	Title   string
	Message string
}

var (
	notFoundPage = errorPage{
		Title:   "Not found",
		Message: "The link you followed does not exist or has expired.",
	}

	serverErrorPage = errorPage{
		Title:   "Something went wrong",
		Message: "An internal server error occurred. Please try again later.",
	}
)

var templateFuncs = template.FuncMap{
	"datetime": formatDateTime,
}

func formatDateTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04 UTC")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04 UTC")
	default:
		return ""
	}
}

type views struct {
	pages map[string]*template.Template
}

func newViews() (*views, error) {
	const op = "adapter.delivery.http.newViews"

	v := &views{pages: make(map[string]*template.Template)}

	for _, page := range []string{pageIndex, pageSuccess, pageStats, pageError} {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse %s: %w", op, page, err)
		}
		v.pages[page] = t
	}

	return v, nil
}

// render writes page with data. The page is rendered into a buffer first so a
// template error still produces a clean 500.
func (v *views) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer

	t, ok := v.pages[page]
	if !ok {
		v.fail(w, r, fmt.Errorf("unknown page %q", page))
		return
	}

	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.fail(w, r, err)
		return
	}

	render.Status(r, status)
	render.HTML(w, r, buf.String())
}

func (v *views) fail(w http.ResponseWriter, r *http.Request, err error) {
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	render.Status(r, http.StatusInternalServerError)
	render.PlainText(w, r, serverErrorPage.Message)
}

func (v *views) notFound(w http.ResponseWriter, r *http.Request) {
	v.render(w, r, http.StatusNotFound, pageError, notFoundPage)
}

func (v *views) serverError(w http.ResponseWriter, r *http.Request, err error) {
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	v.render(w, r, http.StatusInternalServerError, pageError, serverErrorPage)
}
