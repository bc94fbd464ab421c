package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SietraX/saved/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

// dbError logs err under action and answers with a generic 500.
func dbError(w http.ResponseWriter, action string, err error) {
	logging.Logger.Error().Err(err).Msg("saved-collections: " + action)
	writeError(w, http.StatusInternalServerError, "database error")
}

func (s *Server) publishEvent(ctx context.Context, eventType string, payload any) {
	if s.rdb == nil {
		return
	}

	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		logging.Logger.Error().Err(err).Str("event", eventType).Msg("saved-collections: marshal event")
		return
	}
	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		logging.Logger.Warn().Err(err).Str("event", eventType).Msg("saved-collections: publish event")
	}
}
