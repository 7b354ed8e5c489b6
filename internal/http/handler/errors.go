package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/response"
	"decisionjar/internal/jar"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// writeError maps jar sentinel errors to status codes; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, jar.ErrNotFound):
		response.Error(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, jar.ErrNotMember):
		response.Error(w, http.StatusForbidden, "not_member", err.Error())
	case errors.Is(err, jar.ErrForbidden):
		response.Error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, jar.ErrInvalidIdea), errors.Is(err, jar.ErrInvalidName):
		response.Error(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		serverError(w, r, err)
	}
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	uid, _ := auth.UserIDFromContext(r.Context())
	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()),
		"user_id", uid,
		"err", err,
	)
	response.Error(w, http.StatusInternalServerError, "server_error", "server error")
}

func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return 0, false
	}
	return id, true
}

// activeJar resolves the caller's current jar and writes 409 no_active_jar if there is none.
func activeJar(w http.ResponseWriter, r *http.Request, jars *jar.Service) (userID, groupID uint64, ok bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	gid, found, err := jars.ActiveGroup(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return 0, 0, false
	}
	if !found {
		response.Error(w, http.StatusConflict, "no_active_jar", "join or create a jar first")
		return 0, 0, false
	}
	return uid, gid, true
}
