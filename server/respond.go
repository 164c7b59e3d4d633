package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bosko/core/apperr"
	"bosko/logger"
)

var errRouteNotFound = apperr.NotFound("route not found")

type errorBody struct {
	Error struct {
		Code    apperr.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

// writeError maps err to its status and the {"error":{code,message}} body.
// Unclassified errors are logged and reported as internal without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	code := e.Status()
	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", code),
			logger.ErrorField(err))
	} else {
		logger.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.Int("status", code),
			logger.String("message", e.Message))
	}

	var body errorBody
	body.Error.Code = e.Code
	body.Error.Message = e.Message
	writeJSON(w, code, body)
}

// decodeJSON reads a JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return apperr.Validation("Request body is required")
	}
	if err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
