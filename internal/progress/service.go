package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/tigercode/backend/internal/models"
)

// Catalog is the read-only content contract the aggregator consumes. Find
// methods return (nil, nil) when the id does not exist.
type Catalog interface {
	FindPatternByID(id string) (*models.Pattern, error)
	CountPatterns() (int, error)
	FindQuizQuestionByID(id string) (*models.Question, error)
	ListQuizQuestions() ([]models.Question, error)
	CountQuizQuestions() (int, error)
	FindDiagnosticQuestionByID(id string) (*models.Question, error)
	CountDiagnosticQuestions() (int, error)
}

// RecordStore persists one progress document per user. Load returns
// (nil, nil) when the user has no record yet; Save writes the whole
// document back.
type RecordStore interface {
	Load(userID int64) (*models.ProgressRecord, error)
	Save(rec *models.ProgressRecord) error
	ListUsers() ([]models.User, error)
}

// Service is the progress aggregator: the single source of truth for a
// user's learning progress. Every mutating operation is one
// read-modify-write against that user's record. The store provides
// per-document atomicity but there is no optimistic concurrency control;
// two concurrent writes for the same user race and the last one wins.
type Service struct {
	store   RecordStore
	catalog Catalog
}

func NewService(store RecordStore, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// loadOrInit fetches the user's record, creating the canonical default
// record when none exists yet. The default shape is defined once in
// models.NewProgressRecord and nowhere else.
func (s *Service) loadOrInit(userID int64) (*models.ProgressRecord, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		rec = models.NewProgressRecord(userID, time.Now())
	}
	return rec, nil
}

// EnsureRecord creates an empty progress record for a user if absent.
// Called on registration and first OAuth login.
func (s *Service) EnsureRecord(userID int64) error {
	rec, err := s.store.Load(userID)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if rec != nil {
		return nil
	}
	return s.store.Save(models.NewProgressRecord(userID, time.Now()))
}

// TouchLastActive refreshes the user's last-active timestamp, creating the
// record if needed. Called on login.
func (s *Service) TouchLastActive(userID int64) error {
	rec, err := s.loadOrInit(userID)
	if err != nil {
		return err
	}
	rec.LastActive = time.Now()
	return s.store.Save(rec)
}

// ── Pattern views & completion ──────────────────────────

// RecordPatternView registers one view of a pattern. First-ever view
// creates the progress entry with viewCount=1; repeat views bump the
// counter and refresh lastAccessed. The caller is trusted to have
// validated that the pattern exists.
func (s *Service) RecordPatternView(userID int64, patternID string) (*models.PatternViewResult, error) {
	rec, err := s.loadOrInit(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := rec.FindPattern(patternID)
	if entry == nil {
		rec.PatternsProgress = append(rec.PatternsProgress, models.PatternProgress{
			PatternID:    patternID,
			Completed:    false,
			LastAccessed: now,
			ViewCount:    1,
		})
		entry = &rec.PatternsProgress[len(rec.PatternsProgress)-1]
		rec.TotalPatternsViewed++
		if err := s.clampPatternsViewed(rec); err != nil {
			return nil, err
		}
	} else {
		entry.ViewCount++
		entry.LastAccessed = now
	}

	rec.LastActive = now
	if err := s.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	return &models.PatternViewResult{
		PatternID:    patternID,
		ViewCount:    entry.ViewCount,
		Completed:    entry.Completed,
		LastAccessed: entry.LastAccessed,
	}, nil
}

// CompletePattern marks a pattern completed for the user. Idempotent:
// repeat calls leave the single entry completed. Returns
// ErrPatternNotFound when the pattern id is not in the catalog.
func (s *Service) CompletePattern(userID int64, patternID string) (*models.CompletePatternResponse, error) {
	pattern, err := s.catalog.FindPatternByID(patternID)
	if err != nil {
		return nil, fmt.Errorf("find pattern: %w", err)
	}
	if pattern == nil {
		return nil, ErrPatternNotFound
	}

	rec, err := s.loadOrInit(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := rec.FindPattern(patternID)
	if entry == nil {
		rec.PatternsProgress = append(rec.PatternsProgress, models.PatternProgress{
			PatternID:    patternID,
			Completed:    true,
			LastAccessed: now,
			ViewCount:    1,
		})
		rec.TotalPatternsViewed++
		if err := s.clampPatternsViewed(rec); err != nil {
			return nil, err
		}
	} else {
		entry.Completed = true
		entry.LastAccessed = now
	}

	rec.LastActive = now
	if err := s.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	return &models.CompletePatternResponse{PatternID: patternID, Completed: true}, nil
}

// clampPatternsViewed keeps totalPatternsViewed from exceeding the number
// of patterns that currently exist.
func (s *Service) clampPatternsViewed(rec *models.ProgressRecord) error {
	total, err := s.catalog.CountPatterns()
	if err != nil {
		return fmt.Errorf("count patterns: %w", err)
	}
	if rec.TotalPatternsViewed > total {
		rec.TotalPatternsViewed = total
	}
	return nil
}

// PatternProgress returns the user's per-pattern view state.
func (s *Service) PatternProgress(userID int64) (*models.PatternProgressResponse, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return &models.PatternProgressResponse{PatternsProgress: []models.PatternProgress{}}, nil
	}
	return &models.PatternProgressResponse{
		PatternsProgress:    rec.PatternsProgress,
		TotalPatternsViewed: rec.TotalPatternsViewed,
	}, nil
}

// ── Quiz attempts ───────────────────────────────────────

// SubmitQuizAnswer records one quiz attempt. Attempts always append;
// answering the same question again keeps every prior attempt. The
// counters are running sums over the attempt list: totalQuizAttempts
// grows by one per call, correctQuizCount and quizScore by one per
// correct answer. quizScore duplicates correctQuizCount for older
// clients.
func (s *Service) SubmitQuizAnswer(userID int64, questionID, answer string) (*models.QuizAnswerResponse, error) {
	q, err := s.catalog.FindQuizQuestionByID(questionID)
	if err != nil {
		return nil, fmt.Errorf("find quiz question: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	isCorrect := answer == q.CorrectAnswer
	patternTested := q.PatternTested()

	rec, err := s.loadOrInit(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec.QuizAttempts = append(rec.QuizAttempts, models.Attempt{
		QuestionID:     q.QuestionID,
		SelectedAnswer: answer,
		Correct:        isCorrect,
		Timestamp:      now,
		PatternTested:  patternTested,
	})
	rec.TotalQuizAttempts++
	if isCorrect {
		rec.CorrectQuizCount++
		rec.QuizScore++
	}
	rec.LastActive = now

	if err := s.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	return &models.QuizAnswerResponse{
		QuestionID:    q.QuestionID,
		IsCorrect:     isCorrect,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		PatternTested: patternTested,
	}, nil
}

// QuizProgress derives the user's quiz statistics from the raw attempt
// list at read time. Never cached.
func (s *Service) QuizProgress(userID int64) (*models.QuizProgressResponse, error) {
	totalQuestions, err := s.catalog.CountQuizQuestions()
	if err != nil {
		return nil, fmt.Errorf("count quiz questions: %w", err)
	}

	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return &models.QuizProgressResponse{
			QuizAttempts:       []models.Attempt{},
			TotalQuestions:     totalQuestions,
			PatternPerformance: map[string]models.PatternPerformance{},
		}, nil
	}

	return &models.QuizProgressResponse{
		QuizAttempts:       rec.QuizAttempts,
		QuizScore:          rec.QuizScore,
		TotalQuestions:     totalQuestions,
		TotalQuizAttempts:  rec.TotalQuizAttempts,
		CorrectQuizCount:   rec.CorrectQuizCount,
		IncorrectCount:     rec.TotalQuizAttempts - rec.CorrectQuizCount,
		Accuracy:           accuracy(rec.CorrectQuizCount, rec.TotalQuizAttempts),
		PatternPerformance: patternPerformance(rec.QuizAttempts),
	}, nil
}

// QuizSummary returns overall accuracy plus the user's three strongest
// patterns.
func (s *Service) QuizSummary(userID int64) (*models.QuizSummaryResponse, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return &models.QuizSummaryResponse{TopPatterns: []models.TopPattern{}}, nil
	}

	perf := patternPerformance(rec.QuizAttempts)
	top := make([]models.TopPattern, 0, len(perf))
	for pattern, stats := range perf {
		top = append(top, models.TopPattern{
			Pattern:  pattern,
			Accuracy: stats.Accuracy,
			Attempts: stats.Total,
		})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Accuracy != top[j].Accuracy {
			return top[i].Accuracy > top[j].Accuracy
		}
		return top[i].Pattern < top[j].Pattern
	})
	if len(top) > 3 {
		top = top[:3]
	}

	return &models.QuizSummaryResponse{
		TotalAttempts: rec.TotalQuizAttempts,
		CorrectCount:  rec.CorrectQuizCount,
		Accuracy:      accuracy(rec.CorrectQuizCount, rec.TotalQuizAttempts),
		TopPatterns:   top,
	}, nil
}

// ContinuePoint reports where the user left off in the quiz: the index of
// the most recently answered question and the first unanswered one, over
// the catalog's id-sorted question list.
func (s *Service) ContinuePoint(userID int64) (*models.ContinueResponse, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil || len(rec.QuizAttempts) == 0 {
		return &models.ContinueResponse{LastAnsweredIndex: -1, NextUnansweredIndex: 0}, nil
	}

	questions, err := s.catalog.ListQuizQuestions()
	if err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}

	attempted := make(map[string]bool, len(rec.QuizAttempts))
	for _, a := range rec.QuizAttempts {
		attempted[a.QuestionID] = true
	}

	next := 0
	for i, q := range questions {
		if !attempted[q.QuestionID] {
			next = i
			break
		}
	}

	latest := rec.QuizAttempts[0]
	for _, a := range rec.QuizAttempts[1:] {
		if a.Timestamp.After(latest.Timestamp) {
			latest = a
		}
	}
	last := -1
	for i, q := range questions {
		if q.QuestionID == latest.QuestionID {
			last = i
			break
		}
	}

	return &models.ContinueResponse{LastAnsweredIndex: last, NextUnansweredIndex: next}, nil
}

// ── Diagnostic attempts ─────────────────────────────────

// SubmitDiagnosticAnswer records a diagnostic attempt. Unlike quiz
// attempts these are keyed by question id: re-answering overwrites the
// stored entry. The score counts questions whose current answer has been
// correct at least once in its current state: it goes up when a first
// attempt is correct or a replacement turns an incorrect answer correct,
// and it never goes down.
func (s *Service) SubmitDiagnosticAnswer(userID int64, questionID, answer string) (*models.DiagnosticAnswerResponse, error) {
	q, err := s.catalog.FindDiagnosticQuestionByID(questionID)
	if err != nil {
		return nil, fmt.Errorf("find diagnostic question: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	isCorrect := answer == q.CorrectAnswer
	patternTested := q.PatternTested()

	rec, err := s.loadOrInit(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	attempt := models.Attempt{
		QuestionID:     q.QuestionID,
		SelectedAnswer: answer,
		Correct:        isCorrect,
		Timestamp:      now,
		PatternTested:  patternTested,
	}

	prior := rec.FindDiagnosticAttempt(q.QuestionID)
	priorCorrect := prior != nil && prior.Correct
	if prior != nil {
		*prior = attempt
	} else {
		rec.DiagnosticAttempts = append(rec.DiagnosticAttempts, attempt)
	}

	if isCorrect && !priorCorrect {
		rec.DiagnosticScore++
	}

	rec.LastDiagnosticAt = &now
	rec.LastActive = now
	s.refreshDiagnosticCompleted(rec)

	if err := s.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	return &models.DiagnosticAnswerResponse{
		QuestionID:          q.QuestionID,
		IsCorrect:           isCorrect,
		CorrectAnswer:       q.CorrectAnswer,
		Explanation:         q.Explanation,
		PatternTested:       patternTested,
		DiagnosticCompleted: rec.DiagnosticCompleted,
	}, nil
}

// refreshDiagnosticCompleted flips the completion flag once the distinct
// answered-question count reaches the catalog total. The flag only ever
// transitions Incomplete -> Complete; nothing unsets it.
func (s *Service) refreshDiagnosticCompleted(rec *models.ProgressRecord) {
	if rec.DiagnosticCompleted {
		return
	}
	total, err := s.catalog.CountDiagnosticQuestions()
	if err != nil || total == 0 {
		return
	}
	if len(rec.DiagnosticAttempts) >= total {
		rec.DiagnosticCompleted = true
	}
}

// DiagnosticProgress derives diagnostic statistics at read time. When the
// recomputation detects completion that the stored flag missed (the
// question set may have shrunk since the last attempt), the flag is
// persisted before responding.
func (s *Service) DiagnosticProgress(userID int64) (*models.DiagnosticProgressResponse, error) {
	totalQuestions, err := s.catalog.CountDiagnosticQuestions()
	if err != nil {
		return nil, fmt.Errorf("count diagnostic questions: %w", err)
	}

	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return &models.DiagnosticProgressResponse{
			DiagnosticAttempts: []models.Attempt{},
			TotalQuestions:     totalQuestions,
			PatternPerformance: map[string]models.PatternPerformance{},
		}, nil
	}

	correct := 0
	for _, a := range rec.DiagnosticAttempts {
		if a.Correct {
			correct++
		}
	}

	isCompleted := totalQuestions > 0 && len(rec.DiagnosticAttempts) >= totalQuestions
	if isCompleted && !rec.DiagnosticCompleted {
		rec.DiagnosticCompleted = true
		if err := s.store.Save(rec); err != nil {
			return nil, fmt.Errorf("save progress: %w", err)
		}
	}

	return &models.DiagnosticProgressResponse{
		DiagnosticAttempts:  rec.DiagnosticAttempts,
		DiagnosticScore:     rec.DiagnosticScore,
		TotalQuestions:      totalQuestions,
		Accuracy:            accuracy(correct, len(rec.DiagnosticAttempts)),
		PatternPerformance:  patternPerformance(rec.DiagnosticAttempts),
		DiagnosticCompleted: rec.DiagnosticCompleted,
		LastDiagnosticAt:    rec.LastDiagnosticAt,
	}, nil
}

// CompleteDiagnostic marks the diagnostic finished without requiring every
// question to be answered.
func (s *Service) CompleteDiagnostic(userID int64) error {
	rec, err := s.loadOrInit(userID)
	if err != nil {
		return err
	}
	rec.DiagnosticCompleted = true
	if rec.LastDiagnosticAt == nil {
		now := time.Now()
		rec.LastDiagnosticAt = &now
	}
	if err := s.store.Save(rec); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// ── Dashboard & profile ─────────────────────────────────

// Dashboard combines pattern completion, quiz accuracy, recently accessed
// and most viewed patterns, and a per-pattern correct/incorrect tally.
// Attempts recorded before patternTested was stored are resolved by
// looking the question up in the catalog.
func (s *Service) Dashboard(userID int64) (*models.DashboardResponse, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return &models.DashboardResponse{
			RecentPatterns:     []string{},
			MostViewedPatterns: []string{},
			PatternStats:       map[string]models.PatternTally{},
		}, nil
	}

	totalPatterns, err := s.catalog.CountPatterns()
	if err != nil {
		return nil, fmt.Errorf("count patterns: %w", err)
	}

	completed := 0
	for _, p := range rec.PatternsProgress {
		if p.Completed {
			completed++
		}
	}

	stats := make(map[string]models.PatternTally)
	for _, attempt := range rec.QuizAttempts {
		pattern := attempt.PatternTested
		if pattern == "" {
			q, err := s.catalog.FindQuizQuestionByID(attempt.QuestionID)
			if err != nil {
				return nil, fmt.Errorf("find quiz question: %w", err)
			}
			if q == nil {
				continue
			}
			pattern = q.PatternTested()
			if pattern == "" {
				continue
			}
		}
		tally := stats[pattern]
		if attempt.Correct {
			tally.Correct++
		} else {
			tally.Incorrect++
		}
		stats[pattern] = tally
	}

	lastActive := rec.LastActive
	return &models.DashboardResponse{
		TotalPatternsViewed: rec.TotalPatternsViewed,
		CompletedPatterns:   completed,
		CompletionPercent:   accuracy(completed, totalPatterns),
		QuizScore:           rec.QuizScore,
		QuizAttempts:        len(rec.QuizAttempts),
		QuizAccuracy:        accuracy(rec.CorrectQuizCount, rec.TotalQuizAttempts),
		LastActive:          &lastActive,
		RecentPatterns:      topPatterns(rec.PatternsProgress, 3, byLastAccessed),
		MostViewedPatterns:  topPatterns(rec.PatternsProgress, 3, byViewCount),
		PatternStats:        stats,
	}, nil
}

// ProfileProgress returns the short progress summary embedded in the
// profile payload, or nil when the user has no record.
func (s *Service) ProfileProgress(userID int64) (*models.ProfileProgress, error) {
	rec, err := s.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return &models.ProfileProgress{
		TotalPatternsViewed: rec.TotalPatternsViewed,
		QuizScore:           rec.QuizScore,
		LastActive:          rec.LastActive,
	}, nil
}

// ── Derivation helpers ──────────────────────────────────

// accuracy returns correct/total as a percentage, 0 when total is 0.
func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// patternPerformance tallies attempts per tested pattern. Attempts with no
// pattern tag are skipped.
func patternPerformance(attempts []models.Attempt) map[string]models.PatternPerformance {
	perf := make(map[string]models.PatternPerformance)
	for _, a := range attempts {
		if a.PatternTested == "" {
			continue
		}
		p := perf[a.PatternTested]
		p.Total++
		if a.Correct {
			p.Correct++
		}
		perf[a.PatternTested] = p
	}
	for pattern, p := range perf {
		p.Accuracy = accuracy(p.Correct, p.Total)
		perf[pattern] = p
	}
	return perf
}

func byLastAccessed(a, b models.PatternProgress) bool {
	return a.LastAccessed.After(b.LastAccessed)
}

func byViewCount(a, b models.PatternProgress) bool {
	if a.ViewCount != b.ViewCount {
		return a.ViewCount > b.ViewCount
	}
	return a.LastAccessed.After(b.LastAccessed)
}

func topPatterns(entries []models.PatternProgress, n int, less func(a, b models.PatternProgress) bool) []string {
	sorted := make([]models.PatternProgress, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ids := make([]string, 0, len(sorted))
	for _, p := range sorted {
		ids = append(ids, p.PatternID)
	}
	return ids
}
