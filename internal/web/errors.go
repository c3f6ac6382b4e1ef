package web

// errors.go turns handler errors into the JSON error envelope.
//
// Content errors (format, parse, outlier) are the client's fault and go back
// verbatim with status 400. Everything unexpected is logged with the request
// ID and answered with a generic 500 so internals never leak.

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvingest/internal/core"
	"github.com/JonMunkholm/csvingest/internal/logging"
)

const (
	internalErrorMessage    = "An internal server error occurred."
	unavailableErrorMessage = "Database is unavailable."
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
	errRateLimited  = errors.New("rate limit exceeded")
	errUnhealthy    = errors.New("health check failed")
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Action   string           `json:"action,omitempty"`
	Code     string           `json:"code"`
	Outliers []core.Outlier   `json:"outliers,omitempty"`
	Stats    *core.Statistics `json:"stats,omitempty"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case core.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail responds to a service error with the status statusFor chooses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Upload.MaxWaitTime.Seconds())+1))
	}
	s.respondError(w, r, err, status)
}

// respondError logs err and writes the envelope. 500s and failed health
// checks hide the error text; it is only logged.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)
	resp := ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var oe *core.OutlierError
	if errors.As(err, &oe) && oe.Analysis != nil {
		resp.Outliers = oe.Analysis.Outliers
		stats := oe.Analysis.Stats
		resp.Stats = &stats
	}

	logger := logging.WithFields(r.Context(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}

	switch {
	case status == http.StatusInternalServerError:
		resp.Error = internalErrorMessage
	case errors.Is(err, errUnhealthy):
		resp.Error = unavailableErrorMessage
	}
	writeJSON(w, status, resp)
}
