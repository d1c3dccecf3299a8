package api

import (
	"net/http"
)

// handleSubmitDeposit handles POST /api/deposit - Submit a receipt image.
// The body is multipart form data with the image under the "receipt" field.
func (s *Server) handleSubmitDeposit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid or oversized multipart body", nil)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "receipt file is required", nil)
		return
	}
	defer file.Close()

	deposit, err := s.depositService.SubmitReceipt(
		r.Context(),
		UserIDFromContext(r.Context()),
		file,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
	)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, deposit)
}

// handleListDeposits handles GET /api/deposits - All deposits, staff only
func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := s.depositService.ListDeposits(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deposits)
}
