package server

import (
	_ "embed"
	"net/http"

	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
)

//go:embed web/index.html
var indexHTML []byte

// contentSecurityPolicy keeps the page to same-origin fetches. The page's
// own script and styles are inline.
const contentSecurityPolicy = "default-src 'self'; img-src 'self' data:; " +
	"style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; " +
	"connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// Index handles GET / with the single-page UI.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Content-Security-Policy", contentSecurityPolicy)
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(indexHTML); err != nil {
		logger.Debug("Failed to write index page", "error", err)
	}
}
