package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/thermlog/internal/command"
	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sink"
)

type entryResponse struct {
	ParticipantID uint32 `json:"participant_id"`
	Participant   string `json:"participant"`
	Domain        uint8  `json:"domain"`
	Capability    string `json:"capability"`
	State         string `json:"state"`
	Present       bool   `json:"present"`
	Acknowledged  bool   `json:"acknowledged"`
}

type loggingStatusResponse struct {
	command.StatusReport
	Tracked []entryResponse `json:"tracked"`
}

type startRequest struct {
	Targets    []string `json:"targets"`
	IntervalMs uint32   `json:"interval_ms"`
}

type scheduleRequest struct {
	DelayMs uint32   `json:"delay_ms"`
	Targets []string `json:"targets"`
}

type routesRequest struct {
	Routes   []string `json:"routes"`
	FileName string   `json:"file_name"`
}

type intervalRequest struct {
	IntervalMs uint32 `json:"interval_ms"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code"`
	CodeStr string `json:"code_name"`
}

func (s *Server) loggingStatus() loggingStatusResponse {
	entries := s.engine.Entries()
	resp := loggingStatusResponse{
		StatusReport: command.Report(s.engine.Status()),
		Tracked:      make([]entryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Tracked = append(resp.Tracked, entryResponse{
			ParticipantID: e.ParticipantID,
			Participant:   e.Name,
			Domain:        e.Domain,
			Capability:    e.Capability.String(),
			State:         e.State.String(),
			Present:       e.Present,
			Acknowledged:  e.Acknowledged,
		})
	}
	return resp
}

func (s *Server) handleLoggingStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.loggingStatus())
}

func (s *Server) handleLoggingStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	targets, err := participantlog.ParseTargets(req.Targets)
	if err != nil {
		writeLogError(w, err)
		return
	}
	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if err := s.engine.Start(r.Context(), targets, interval); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.loggingStatus())
}

func (s *Server) handleLoggingStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.engine.Stop(); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.loggingStatus())
}

func (s *Server) handleLoggingRoutes(w http.ResponseWriter, r *http.Request) {
	var req routesRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	var routes sink.RouteSet
	for _, name := range req.Routes {
		route, err := sink.ParseRoute(name)
		if err != nil {
			writeLogError(w, fmt.Errorf("%w: %w", participantlog.ErrParameterInvalid, err))
			return
		}
		routes |= route
	}
	if err := s.engine.SetRoutes(routes, req.FileName); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, command.Report(s.engine.Status()))
}

func (s *Server) handleLoggingInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.engine.SetInterval(time.Duration(req.IntervalMs) * time.Millisecond); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, command.Report(s.engine.Status()))
}

func (s *Server) handleLoggingSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	targets, err := participantlog.ParseTargets(req.Targets)
	if err != nil {
		writeLogError(w, err)
		return
	}
	delay := time.Duration(req.DelayMs) * time.Millisecond
	if err := s.engine.Schedule(r.Context(), delay, targets); err != nil {
		writeLogError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, command.Report(s.engine.Status()))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	res := s.commands.Execute(r.Context(), req.Command)
	resp := commandResponse{Output: res.Output, Code: int(res.Code), CodeStr: res.Code.String()}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = command.ErrorLine(res.Err)
		status, _ = logStatus(res.Code)
	}
	writeJSON(w, status, resp)
}
