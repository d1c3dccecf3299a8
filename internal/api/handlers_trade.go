package api

import (
	"net/http"
	"strconv"

	"github.com/copiqat-backend/internal/service"
	"github.com/gorilla/mux"
)

// handleOpenTrade handles POST /api/trade - Open a position
func (s *Server) handleOpenTrade(w http.ResponseWriter, r *http.Request) {
	var req service.OpenTradeInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	trade, err := s.tradeService.OpenTrade(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, trade)
}

// handleCloseTrade handles POST /api/trades/{id}/close - Close a position
func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Trade ID must be an integer", nil)
		return
	}

	if err := s.tradeService.CloseTrade(r.Context(), UserIDFromContext(r.Context()), tradeID); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Trade closed",
	})
}

// handleListTrades handles GET /api/list_trade - Priced trade listing
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	listing, err := s.valuationService.ListTrades(r.Context(), UserIDFromContext(r.Context()), r.URL.Query())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listing)
}
