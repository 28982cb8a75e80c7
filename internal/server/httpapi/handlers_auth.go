package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/homevault/internal/common"
	"github.com/dmitrijs2005/homevault/internal/server/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.opts.PagesDir, "login.html"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.opts.PagesDir, "index.html"))
}

// handleLogin checks the credentials and sets the session cookie. A client
// that already holds a live session gets 200 and keeps its cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.currentSession(r); err == nil {
		writeStatus(w, http.StatusOK)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !s.creds.Verify(ctx, req.Username, req.Password) {
		s.logger.Warn(ctx, "login failed", "username", req.Username, "client", clientKey(r))
		writeStatus(w, http.StatusForbidden)
		return
	}

	id := s.sessions.Issue(req.Username)

	token, err := auth.GenerateToken(id, s.opts.SecretKey, s.opts.SessionTTL)
	if err != nil {
		s.sessions.Remove(id)
		s.logger.Error(ctx, "sign session token", "error", err)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.opts.SessionTTL),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Info(ctx, "logged in", "username", req.Username)
	writeStatus(w, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	s.sessions.Remove(session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Info(r.Context(), "logged out", "username", session.Username)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, session.Username)
}

// handleCertificate offers the server certificate for download so clients
// can trust it.
func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.opts.CertificateFile)
	if err != nil {
		writeStatus(w, http.StatusNoContent)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeStatus(w, http.StatusNoContent)
		return
	}

	attachment(w, "certificate.cer")
	http.ServeContent(w, r, "certificate.cer", info.ModTime(), f)
}
