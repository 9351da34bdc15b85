// Package http provides the HTTP delivery layer of the link shortener: the HTML
// pages behind the shorten form, the redirect endpoint and the JSON API.
package http

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	pkgmiddleware "github.com/Vishnukv66991/pyshort/pkg/middleware"
	"github.com/Vishnukv66991/pyshort/pkg/middleware/recoverer"
)

//go:embed docs/swagger.yml
var swaggerSpec []byte

type options struct {
	baseURL         string
	preferredScheme string
	shortenLimiter  pkgmiddleware.Middleware
	trustProxy      bool
}

type Option func(*options)

// WithBaseURL fixes the prefix of generated short URLs instead of deriving it
// from each request. baseURL must end with a slash.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithPreferredScheme sets the scheme of derived short URLs for plain HTTP requests.
func WithPreferredScheme(scheme string) Option {
	return func(o *options) {
		if scheme != "" {
			o.preferredScheme = scheme
		}
	}
}

// WithShortenLimiter guards both shorten endpoints with mw.
func WithShortenLimiter(mw pkgmiddleware.Middleware) Option {
	return func(o *options) {
		o.shortenLimiter = mw
	}
}

// WithTrustedProxy takes the client IP from X-Forwarded-For and X-Real-IP.
// Without it the rate limiter and the request log see the TCP peer address.
func WithTrustedProxy() Option {
	return func(o *options) {
		o.trustProxy = true
	}
}

// NewRouter initializes and returns a new Chi router with every page and API route of the shortener.
func NewRouter(logger *httplog.Logger, linkUseCase linkUseCase, qr qrStore, opts ...Option) (*chi.Mux, error) {
	o := &options{preferredScheme: "http"}
	for _, opt := range opts {
		opt(o)
	}

	v, err := newViews()
	if err != nil {
		return nil, err
	}

	h := newLinkHandler(linkUseCase, qr, validator.New(), v, o)

	limit := func(next http.Handler) http.Handler { return next }
	if o.shortenLimiter != nil {
		limit = o.shortenLimiter
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if o.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.NotFound(v.notFound)

	r.Get("/health", handleHealth)
	r.Get("/", h.index)
	r.With(limit).Post("/shorten", h.shorten)
	r.Get("/stats/{code}", h.stats)
	r.Get("/static/qr/*", qr.ServeHTTP)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(swaggerSpec)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           84600,
		}))

		r.Get("/expand/{code}", h.expand)
		r.With(limit).Post("/shorten", h.apiShorten)
	})

	r.Get("/{code}", h.redirect)

	return r, nil
}
