package api

import (
	"net/http"
	"time"
)

type samplerStartRequest struct {
	FileName string `json:"file_name"`
	PeriodMs uint32 `json:"period_ms"`
}

func (s *Server) samplerAvailable(w http.ResponseWriter) bool {
	if s.sampler == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "sampler is disabled")
		return false
	}
	return true
}

func (s *Server) handleSamplerStatus(w http.ResponseWriter, _ *http.Request) {
	if !s.samplerAvailable(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.sampler.Status())
}

func (s *Server) handleSamplerStart(w http.ResponseWriter, r *http.Request) {
	if !s.samplerAvailable(w) {
		return
	}
	var req samplerStartRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	period := time.Duration(req.PeriodMs) * time.Millisecond
	if period == 0 {
		period = s.samplerEvery
	}
	if err := s.sampler.Start(req.FileName, period); err != nil {
		writeSamplerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sampler.Status())
}

func (s *Server) handleSamplerStop(w http.ResponseWriter, _ *http.Request) {
	if !s.samplerAvailable(w) {
		return
	}
	if err := s.sampler.Stop(); err != nil {
		writeSamplerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sampler.Status())
}
