package server

import (
	"net/http"
)

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.RestTimer(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds int `json:"seconds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	st, err := s.tracker.StartRestTimer(r.Context(), body.Seconds)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAdjustTimer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta int `json:"delta"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	st, err := s.tracker.AdjustRestTimer(r.Context(), body.Delta)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSkipTimer(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.SkipRestTimer(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResetTimer(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.ResetRestTimer(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleOpenPicker(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.OpenPicker(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Entry())
}

func (s *Server) handlePushDigit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Digit *int `json:"digit"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Digit == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "digit is required"})
		return
	}
	entry, err := s.tracker.PushDigit(*body.Digit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleBackspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Backspace())
}

func (s *Server) handleClearEntry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.ClearEntry())
}

func (s *Server) handleStartFromEntry(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.StartFromEntry(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
