package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// writeJSON writes v as the JSON body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// attachment sets Content-Disposition so browsers download the body as
// name.
func attachment(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}

// pathParam returns the decoded wildcard part of the route.
func pathParam(r *http.Request) string {
	p := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(p); err == nil {
			p = decoded
		}
	}
	return p
}
