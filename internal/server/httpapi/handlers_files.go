package httpapi

import (
	"errors"
	"net/http"
	"path"

	"github.com/dmitrijs2005/homevault/internal/common"
)

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	files, err := s.vault.List(r.Context(), session.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeStatus(w, http.StatusNoContent)
			return
		}
		s.logger.Error(r.Context(), "list files", "username", session.Username, "error", err)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleListTrash(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	files, err := s.vault.ListTrash(r.Context(), session.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeStatus(w, http.StatusNoContent)
			return
		}
		s.logger.Error(r.Context(), "list trash", "username", session.Username, "error", err)
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// handleDownload streams a file. Any failure, a rejected path included,
// answers 204.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	rel := pathParam(r)

	f, err := s.vault.Open(r.Context(), session.Username, rel)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(r.Context(), "open file", "username", session.Username, "path", rel, "error", err)
		}
		writeStatus(w, http.StatusNoContent)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.logger.Error(r.Context(), "stat file", "username", session.Username, "path", rel, "error", err)
		writeStatus(w, http.StatusNoContent)
		return
	}

	name := path.Base(rel)
	attachment(w, name)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	name := r.Header.Get(common.FileNameHeader)
	if name == "" {
		http.Error(w, "missing "+common.FileNameHeader+" header", http.StatusUnauthorized)
		return
	}

	stored, err := s.vault.Write(r.Context(), session.Username, name, r.Body)
	if err != nil {
		s.logger.Error(r.Context(), "upload", "username", session.Username, "name", name, "error", err)
		if errors.Is(err, common.ErrInternal) {
			writeStatus(w, http.StatusExpectationFailed)
			return
		}
		writeStatus(w, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	rel := pathParam(r)

	outcome, err := s.vault.Delete(r.Context(), session.Username, rel)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrForbidden):
			s.logger.Warn(r.Context(), "rejected delete", "username", session.Username, "path", rel)
			writeStatus(w, http.StatusForbidden)
		case errors.Is(err, common.ErrNotFound):
			writeStatus(w, http.StatusNoContent)
		case errors.Is(err, common.ErrNotAFile):
			writeStatus(w, http.StatusBadRequest)
		case errors.Is(err, common.ErrInternal):
			s.logger.Error(r.Context(), "delete", "username", session.Username, "path", rel, "error", err)
			writeStatus(w, http.StatusExpectationFailed)
		case errors.Is(err, common.ErrPurgeFailed):
			s.logger.Error(r.Context(), "purge", "username", session.Username, "path", rel, "error", err)
			writeStatus(w, http.StatusInternalServerError)
		default:
			s.logger.Error(r.Context(), "delete", "username", session.Username, "path", rel, "error", err)
			writeStatus(w, http.StatusNoContent)
		}
		return
	}

	s.logger.Debug(r.Context(), "deleted", "username", session.Username, "path", rel, "outcome", outcome.String())
	writeStatus(w, http.StatusOK)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	rel := pathParam(r)

	newName := r.URL.Query().Get("new_file_name")
	if newName == "" {
		http.Error(w, "missing new_file_name", http.StatusBadRequest)
		return
	}

	err := s.vault.Rename(r.Context(), session.Username, rel, newName)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrForbidden):
			s.logger.Warn(r.Context(), "rejected rename", "username", session.Username, "path", rel, "new_name", newName)
			writeStatus(w, http.StatusForbidden)
		case errors.Is(err, common.ErrConflict):
			writeStatus(w, http.StatusConflict)
		case errors.Is(err, common.ErrInvalidName):
			writeStatus(w, http.StatusBadRequest)
		case errors.Is(err, common.ErrNotFound):
			writeStatus(w, http.StatusNoContent)
		default:
			s.logger.Error(r.Context(), "rename", "username", session.Username, "path", rel, "error", err)
			writeStatus(w, http.StatusNoContent)
		}
		return
	}

	writeStatus(w, http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	rel := pathParam(r)

	newPath := r.URL.Query().Get("new_file_path")
	if newPath == "" {
		http.Error(w, "missing new_file_path", http.StatusBadRequest)
		return
	}

	err := s.vault.Move(r.Context(), session.Username, rel, newPath)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrForbidden):
			s.logger.Warn(r.Context(), "rejected move", "username", session.Username, "path", rel, "new_path", newPath)
			writeStatus(w, http.StatusForbidden)
		case errors.Is(err, common.ErrNotFound):
			writeStatus(w, http.StatusNoContent)
		case errors.Is(err, common.ErrInvalidName):
			writeStatus(w, http.StatusBadRequest)
		default:
			s.logger.Error(r.Context(), "move", "username", session.Username, "path", rel, "error", err)
			writeStatus(w, http.StatusExpectationFailed)
		}
		return
	}

	writeStatus(w, http.StatusOK)
}

func (s *Server) handleSysInfo(w http.ResponseWriter, r *http.Request) {
	usage, err := s.vault.Usage(r.Context())
	if err != nil {
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
