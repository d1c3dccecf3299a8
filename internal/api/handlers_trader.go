package api

import (
	"net/http"
)

// handleListTraders handles GET /api/traders - Public leaderboard.
// Supports ?stars=, ?search= and ?ordering= (comma-separated, "-" prefix
// for descending).
func (s *Server) handleListTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := s.traderService.ListTraders(r.Context(), r.URL.Query())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, traders)
}
