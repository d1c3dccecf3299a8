package api

import (
	"net/http"
)

// handleDashboard handles GET /api/dashboard - Account overview
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.accountService.GetDashboard(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}

// handleVault handles GET /api/vault - Vault balances
func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	vault, err := s.accountService.GetVault(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, vault)
}

// handleVerifyKYC handles POST /api/kyc/verify - Mark account KYC-verified
func (s *Server) handleVerifyKYC(w http.ResponseWriter, r *http.Request) {
	if err := s.accountService.VerifyKYC(r.Context(), UserIDFromContext(r.Context())); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "KYC verified",
	})
}
