package errs

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// codes maps application error codes to HTTP status codes.
var codes = map[string]int{
	EFORBIDDEN:    http.StatusForbidden,
	EINTERNAL:     http.StatusInternalServerError,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
}

// logger receives internal error details. It defaults to a no-op logger
// until the app wires in a real one via SetLogger.
var logger = zap.NewNop()

// SetLogger installs the zap logger used by LogError.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// ErrorStatusCode translates an application error code to an HTTP status code.
func ErrorStatusCode(code string) int {
	if status, ok := codes[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ReturnError writes an error response to the client. Application errors
// keep their message, everything else is logged and masked.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	json.NewEncoder(w).Encode(&errorResponse{Error: message})
}

// LogError logs an internal error together with the request it occurred on.
func LogError(r *http.Request, err error) {
	logger.Error("request error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

type errorResponse struct {
	Error string `json:"error"`
}
