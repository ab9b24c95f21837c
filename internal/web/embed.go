// ABOUTME: Embeds the static landing and test pages into the binary.
// ABOUTME: Served at / and /test by the HTTP server.

package web

import (
	"embed"
	"log/slog"
	"net/http"
)

//go:embed static/*.html
var staticFS embed.FS

// RegisterRoutes serves the landing page at / and the token test page at /test.
func RegisterRoutes(mux *http.ServeMux, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	serve := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			data, err := staticFS.ReadFile("static/" + name)
			if err != nil {
				logger.Error("missing embedded page", "name", name, "error", err)
				http.Error(w, "Not Found", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(data)
		}
	}

	mux.HandleFunc("/{$}", serve("index.html"))
	mux.HandleFunc("/test", serve("test.html"))
}
