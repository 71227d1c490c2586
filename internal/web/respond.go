package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/web/templates"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}

// writeAPIError maps a query error to its HTTP status.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		log.WithError(err).Error("api query failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func renderPage(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		log.WithError(err).Error("failed to render page")
	}
}

func renderErrorPage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	page := templates.Error(templates.ErrorPage{Status: status, Title: title, Message: message})
	templ.Handler(page, templ.WithStatus(status)).ServeHTTP(w, r)
}

// pageError renders the error page matching a lookup failure.
func pageError(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		renderErrorPage(w, r, http.StatusNotFound, what+" not found", err.Error())
		return
	}
	log.WithError(err).WithField("path", r.URL.Path).Error("page query failed")
	renderErrorPage(w, r, http.StatusInternalServerError, "Something went wrong", "The page could not be loaded.")
}
