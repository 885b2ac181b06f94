package progress

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tigercode/backend/internal/auth"
	"github.com/tigercode/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CompletePattern(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.CompletePattern(userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, "CompletePattern", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) GetPatternProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.PatternProgress(userID)
	if err != nil {
		h.writeServiceError(w, "GetPatternProgress", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) SubmitQuizAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	answer, ok := decodeAnswer(w, r)
	if !ok {
		return
	}

	resp, err := h.service.SubmitQuizAnswer(userID, mux.Vars(r)["id"], answer)
	if err != nil {
		h.writeServiceError(w, "SubmitQuizAnswer", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) GetQuizProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.QuizProgress(userID)
	if err != nil {
		h.writeServiceError(w, "GetQuizProgress", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) GetQuizSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.QuizSummary(userID)
	if err != nil {
		h.writeServiceError(w, "GetQuizSummary", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) GetContinuePoint(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.ContinuePoint(userID)
	if err != nil {
		h.writeServiceError(w, "GetContinuePoint", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) SubmitDiagnosticAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	answer, ok := decodeAnswer(w, r)
	if !ok {
		return
	}

	resp, err := h.service.SubmitDiagnosticAnswer(userID, mux.Vars(r)["id"], answer)
	if err != nil {
		h.writeServiceError(w, "SubmitDiagnosticAnswer", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) GetDiagnosticProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.DiagnosticProgress(userID)
	if err != nil {
		h.writeServiceError(w, "GetDiagnosticProgress", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *Handler) CompleteDiagnostic(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.CompleteDiagnostic(userID); err != nil {
		h.writeServiceError(w, "CompleteDiagnostic", err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"diagnostic_completed": true})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Dashboard(userID)
	if err != nil {
		h.writeServiceError(w, "GetDashboard", err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

// DownloadReport streams the all-users performance export as CSV.
// Admin-only; the router wraps this in auth.RequireAdmin.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="tigercode-user-performance.csv"`)

	if err := h.service.WriteReportCSV(w); err != nil {
		// Headers may already be out; log and abort the stream
		log.Printf("[progress] DownloadReport error: %v", err)
	}
}

func decodeAnswer(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return "", false
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer is required"})
		return "", false
	}
	return req.Answer, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrPatternNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Pattern not found"})
	case errors.Is(err, ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
	default:
		log.Printf("[progress] %s error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, models.SuccessResponse{Success: true, Data: data})
}
