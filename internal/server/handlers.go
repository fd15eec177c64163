package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/workout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Workout(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if view == nil {
		s.writeError(w, workout.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var input workout.StartInput
	if !decodeJSON(w, r, &input) {
		return
	}

	view, err := s.tracker.StartWorkout(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout started", "by", userInfoFromContext(r).Login, "id", view.Session.ID)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	view, err := s.tracker.UpdateWorkout(r.Context(), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if view == nil {
		s.writeError(w, workout.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleEndWorkout(w http.ResponseWriter, r *http.Request) {
	ended, err := s.tracker.EndWorkout(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout ended", "by", userInfoFromContext(r).Login, "id", ended.ID)
	writeJSON(w, http.StatusOK, ended)
}

func (s *Server) handleMinimize(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Minimize(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMaximize(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Maximize(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	exercise, set, ok := setParams(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.CompleteSet(r.Context(), exercise, set)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUncompleteSet(w http.ResponseWriter, r *http.Request) {
	exercise, set, ok := setParams(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.UncompleteSet(r.Context(), exercise, set)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State string `json:"state"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	state, err := lifecycle.ParseState(body.State)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	s.lifecycle.Publish(state)
	writeJSON(w, http.StatusOK, map[string]lifecycle.State{"state": state})
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, resttimer.ErrInvalidDuration),
		errors.Is(err, resttimer.ErrInvalidDigit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workout.ErrSessionActive),
		errors.Is(err, resttimer.ErrNotRunning),
		errors.Is(err, resttimer.ErrRunning):
		status = http.StatusConflict
	case errors.Is(err, workout.ErrNoSession),
		errors.Is(err, workout.ErrSetNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads an optional JSON body into v. It writes a 400 and
// reports false when the body is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func setParams(w http.ResponseWriter, r *http.Request) (exercise, set int, ok bool) {
	exercise, err := strconv.Atoi(chi.URLParam(r, "exercise"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise index"})
		return 0, 0, false
	}
	set, err = strconv.Atoi(chi.URLParam(r, "set"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set index"})
		return 0, 0, false
	}
	return exercise, set, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
