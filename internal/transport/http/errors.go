package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"couplegame-service/internal/app"
	"couplegame-service/internal/domain"
)

var (
	errUnsupportedMessage = errors.New("unsupported message type")
	errMalformedPayload   = errors.New("malformed message payload")
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var codeStatus = map[string]int{
	"not_found":                http.StatusNotFound,
	"forbidden":                http.StatusForbidden,
	"not_subject":              http.StatusForbidden,
	"session_not_active":       http.StatusConflict,
	"already_answered":         http.StatusConflict,
	"verdict_already_set":      http.StatusConflict,
	"duplicate_active_session": http.StatusConflict,
	"conflict":                 http.StatusConflict,
	"invalid_slot":             http.StatusUnprocessableEntity,
	"invalid_answer":           http.StatusUnprocessableEntity,
	"answers_incomplete":       http.StatusUnprocessableEntity,
	"no_partner":               http.StatusUnprocessableEntity,
	"empty_question_bank":      http.StatusUnprocessableEntity,
	"unknown_game_type":        http.StatusBadRequest,
	"invalid_players":          http.StatusBadRequest,
}

// errorResponse maps err to a status and envelope. Unexpected errors are not echoed to clients.
func errorResponse(err error) (int, errorBody) {
	switch {
	case errors.Is(err, errUnsupportedMessage), errors.Is(err, errMalformedPayload):
		return http.StatusBadRequest, errorBody{Error: "invalid_request", Message: err.Error()}
	case errors.Is(err, app.ErrFeedUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "feed_unavailable", Message: err.Error()}
	}
	code := domain.Code(err)
	status, ok := codeStatus[code]
	if !ok {
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"}
	}
	return status, errorBody{Error: code, Message: err.Error()}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
