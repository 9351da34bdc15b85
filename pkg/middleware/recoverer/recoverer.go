package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/Vishnukv66991/pyshort/pkg/middleware"
	"github.com/go-chi/render"
)

// New returns middleware that turns a panic in next into a 500 response and logs it.
// http.ErrAbortHandler is re-panicked so the server can abort the connection.
func New(logger *slog.Logger) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{"error": "server_error"})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
