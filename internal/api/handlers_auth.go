package api

import (
	"net/http"

	"github.com/copiqat-backend/internal/service"
)

// handleRegister handles POST /api/register - Create account
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":      "Account created, check your email for the activation code",
		"email":        user.Email,
		"referralCode": user.ReferralCode,
	})
}

// handleVerifyOTP handles POST /api/verify-otp - Activate account
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.authService.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Account verified, you can now log in",
	})
}

// handleRequestOTP handles POST /api/request-otp - Re-send activation code
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.authService.RequestOTP(r.Context(), req.Email); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "A new code is on its way to your email",
	})
}

// handleLogin handles POST /api/login - Authenticate
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleLogout handles POST /api/logout - Revoke refresh token
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := parseJSONBody(r, &req); err != nil || req.Refresh == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Refresh token required", nil)
		return
	}

	if err := s.authService.Logout(r.Context(), req.Refresh); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// handleRequestPasswordReset handles POST /api/reset-password
func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "A reset code is on its way to your email",
	})
}

// handleConfirmPasswordReset handles POST /api/reset-password-confirm
func (s *Server) handleConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := s.authService.ConfirmPasswordReset(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated, log in with the new one",
	})
}
