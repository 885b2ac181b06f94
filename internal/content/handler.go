package content

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tigercode/backend/internal/auth"
	"github.com/tigercode/backend/internal/models"
)

// ViewRecorder is the slice of the progress aggregator the catalog layer
// uses: pattern detail views count toward progress for logged-in callers.
type ViewRecorder interface {
	RecordPatternView(userID int64, patternID string) (*models.PatternViewResult, error)
}

type Handler struct {
	store    *Store
	progress ViewRecorder
}

func NewHandler(store *Store, progress ViewRecorder) *Handler {
	return &Handler{store: store, progress: progress}
}

func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.store.ListPatterns()
	if err != nil {
		log.Printf("[content] ListPatterns error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list patterns"})
		return
	}

	summaries := make([]models.PatternSummary, 0, len(patterns))
	for _, p := range patterns {
		summaries = append(summaries, p.Summary())
	}
	writeList(w, len(summaries), summaries)
}

// GetPattern serves one pattern. When the caller carries a valid token the
// view is recorded against their progress; anonymous reads are served
// without bookkeeping.
func (h *Handler) GetPattern(w http.ResponseWriter, r *http.Request) {
	patternID := mux.Vars(r)["id"]

	pattern, err := h.store.FindPatternByID(patternID)
	if err != nil {
		log.Printf("[content] GetPattern error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load pattern"})
		return
	}
	if pattern == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Pattern not found"})
		return
	}

	if userID, ok := auth.UserID(r); ok {
		if _, err := h.progress.RecordPatternView(userID, pattern.PatternID); err != nil {
			// The read still succeeds; the view just goes uncounted
			log.Printf("[content] record view for user %d: %v", userID, err)
		}
	}

	writeData(w, http.StatusOK, pattern)
}

func (h *Handler) ListQuizQuestions(w http.ResponseWriter, r *http.Request) {
	h.listQuestions(w, h.store.ListQuizQuestions)
}

func (h *Handler) GetQuizQuestion(w http.ResponseWriter, r *http.Request) {
	h.getQuestion(w, r, h.store.FindQuizQuestionByID)
}

func (h *Handler) ListDiagnosticQuestions(w http.ResponseWriter, r *http.Request) {
	h.listQuestions(w, h.store.ListDiagnosticQuestions)
}

func (h *Handler) GetDiagnosticQuestion(w http.ResponseWriter, r *http.Request) {
	h.getQuestion(w, r, h.store.FindDiagnosticQuestionByID)
}

func (h *Handler) listQuestions(w http.ResponseWriter, list func() ([]models.Question, error)) {
	questions, err := list()
	if err != nil {
		log.Printf("[content] list questions error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list questions"})
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	writeList(w, len(questions), questions)
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request, find func(string) (*models.Question, error)) {
	question, err := find(mux.Vars(r)["id"])
	if err != nil {
		log.Printf("[content] get question error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load question"})
		return
	}
	if question == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
		return
	}
	writeData(w, http.StatusOK, question)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, models.SuccessResponse{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, count int, data interface{}) {
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true, Count: &count, Data: data})
}
