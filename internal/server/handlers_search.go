package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SietraX/saved/internal/transcript"
)

type searchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

func (s *Server) handleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")

	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	term := strings.TrimSpace(body.SearchTerm)
	if term == "" {
		writeError(w, http.StatusBadRequest, "Search term is required")
		return
	}

	results, err := transcript.Search(r.Context(), s.db, userID, term)
	if err != nil {
		dbError(w, "advanced search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
