package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sampler"
)

// Error is the JSON error body. LogCode carries the numeric logging error
// code when the failure came from the engine.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	LogCode int    `json:"log_code,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// logStatus maps a logging error code to an HTTP status and error code.
func logStatus(c participantlog.Code) (int, string) {
	switch c {
	case participantlog.CodeParameterInvalid,
		participantlog.CodeInvalidSubDeviceID,
		participantlog.CodeCapabilityMaskInvalid:
		return http.StatusBadRequest, ErrCodeValidation
	case participantlog.CodeParticipantNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case participantlog.CodeAlreadyActive,
		participantlog.CodeNotActive,
		participantlog.CodeNoDataToLog:
		return http.StatusConflict, ErrCodeConflict
	case participantlog.CodeNoMemory:
		return http.StatusInsufficientStorage, ErrCodeUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeLogError writes an engine error with its numeric code.
func writeLogError(w http.ResponseWriter, err error) {
	c := participantlog.CodeOf(err)
	status, code := logStatus(c)
	writeJSON(w, status, Error{Status: status, Code: code, Message: err.Error(), LogCode: int(c)})
}

func writeSamplerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sampler.ErrInvalidPeriod), errors.Is(err, sampler.ErrInvalidFileName):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, sampler.ErrAlreadyRunning), errors.Is(err, sampler.ErrNotRunning),
		errors.Is(err, sampler.ErrFileExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
