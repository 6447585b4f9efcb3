// Package site serves the embedded landing page with the valuation form.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page routes to mux. The page is served at /
// and its assets are also reachable under /static/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("/", files)
	mux.Handle("/static/", http.StripPrefix("/static", files))
}
