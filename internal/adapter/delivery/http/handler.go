package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/Vishnukv66991/pyshort/internal/entity"
	"github.com/Vishnukv66991/pyshort/internal/usecase"
)

const maxFormBytes = 1 << 20

func handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type linkUseCase interface {
	Shorten(ctx context.Context, in usecase.ShortenInput) (*entity.Link, error)
	Resolve(ctx context.Context, shortCode string) (*entity.Link, error)
	Expand(ctx context.Context, shortCode string) (*entity.LinkView, error)
	Recent(ctx context.Context) ([]*entity.Link, error)
}

type qrStore interface {
	Ensure(code, baseURL string) error
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

type linkHandler struct {
	useCase  linkUseCase
	qr       qrStore
	validate *validator.Validate
	views    *views
	opts     *options
}

func newLinkHandler(useCase linkUseCase, qr qrStore, validate *validator.Validate, views *views, opts *options) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &linkHandler{
		useCase:  useCase,
		qr:       qr,
		validate: validate,
		views:    views,
		opts:     opts,
	}
}

// baseURL is the prefix short codes are appended to, always ending in a slash.
func (h *linkHandler) baseURL(r *http.Request) string {
	if h.opts.baseURL != "" {
		return h.opts.baseURL
	}

	scheme := h.opts.preferredScheme
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + "/"
}

func (h *linkHandler) ensureQR(r *http.Request, code, baseURL string) {
	if err := h.qr.Ensure(code, baseURL); err != nil {
		httplog.LogEntrySetField(r.Context(), "qr_err", slog.AnyValue(err))
	}
}

func (h *linkHandler) index(w http.ResponseWriter, r *http.Request) {
	recent, err := h.useCase.Recent(r.Context())
	if err != nil {
		h.views.serverError(w, r, err)
		return
	}

	h.views.render(w, r, http.StatusOK, pageIndex, indexPage{
		Error:  kindMessages[r.URL.Query().Get("error")],
		Recent: recent,
	})
}

func (h *linkHandler) shorten(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	if err := r.ParseForm(); err != nil {
		h.redirectWithError(w, r, entity.KindInvalidURL)
		return
	}

	link, err := h.useCase.Shorten(r.Context(), usecase.ShortenInput{
		LongURL:    r.PostForm.Get("long_url"),
		CustomCode: r.PostForm.Get("custom_code"),
		ExpiresIn:  r.PostForm.Get("expires_in"),
	})
	if err != nil {
		if kind := entity.ErrorKind(err); kind != "" {
			h.redirectWithError(w, r, kind)
			return
		}

		h.views.serverError(w, r, err)
		return
	}

	baseURL := h.baseURL(r)
	h.ensureQR(r, link.ShortCode, baseURL)

	h.views.render(w, r, http.StatusOK, pageSuccess, successPage{
		ShortURL:  baseURL + link.ShortCode,
		Code:      link.ShortCode,
		LongURL:   link.LongURL,
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *linkHandler) redirectWithError(w http.ResponseWriter, r *http.Request, kind string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(kind), http.StatusFound)
}

func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "code")

	link, err := h.useCase.Resolve(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			h.views.notFound(w, r)
			return
		}

		h.views.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, link.LongURL, http.StatusFound)
}

func (h *linkHandler) stats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "code")

	view, err := h.useCase.Expand(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			h.views.notFound(w, r)
			return
		}

		h.views.serverError(w, r, err)
		return
	}

	h.views.render(w, r, http.StatusOK, pageStats, statsPage{
		LinkView: view,
		ShortURL: h.baseURL(r) + view.ShortCode,
	})
}

func (h *linkHandler) expand(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "code")

	view, err := h.useCase.Expand(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, notFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toExpandResponse(view))
}

func (h *linkHandler) apiShorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxFormBytes), &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.Shorten(r.Context(), req.toInput())
	if err != nil {
		switch kind := entity.ErrorKind(err); kind {
		case entity.KindCodeTaken:
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, kindErrorResponse(kind))
		case entity.KindInvalidURL, entity.KindInvalidExpiry, entity.KindInvalidCustomCode:
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, kindErrorResponse(kind))
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	baseURL := h.baseURL(r)
	h.ensureQR(r, link.ShortCode, baseURL)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortenResponse(link, baseURL))
}
