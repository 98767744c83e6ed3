package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thermlog/internal/directory"
)

func (s *Server) handleListParticipants(w http.ResponseWriter, _ *http.Request) {
	participants := s.participants.List()
	if participants == nil {
		participants = []directory.Participant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participants": participants,
		"count":        len(participants),
	})
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeBadRequest(w, "participant id must be a number")
		return
	}
	p, err := s.participants.ByID(uint32(id))
	if errors.Is(err, directory.ErrParticipantNotFound) {
		writeNotFound(w, "participant not found")
		return
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
