package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the router.
//
// Routes:
//   - GET /login, POST /login, GET /certificate - rate limited
//   - GET /, GET /logout - session required, redirect to /login otherwise
//   - GET /username, GET /sysinfo, /file/..., GET /trash - session required, 401 otherwise
//   - everything else - files from the static directory
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/certificate", s.handleCertificate)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession(true))
		r.Get("/", s.handleIndex)
		r.Get("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession(false))
		r.Get("/username", s.handleUsername)
		r.Get("/sysinfo", s.handleSysInfo)
		r.Get("/trash", s.handleListTrash)

		r.Route("/file", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Post("/", s.handleUpload)
			r.Put("/move/*", s.handleMove)
			r.Get("/*", s.handleDownload)
			r.Delete("/*", s.handleDelete)
			r.Patch("/*", s.handleRename)
		})
	})

	r.Get("/*", http.FileServer(http.Dir(s.opts.StaticDir)).ServeHTTP)

	return r
}
