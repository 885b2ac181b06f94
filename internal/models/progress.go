package models

import "time"

// ProgressRecord is the single per-user progress document. It is read,
// mutated, and written back whole on every progress event; the scalar
// counters are running sums kept consistent with the attempt lists.
type ProgressRecord struct {
	UserID              int64             `json:"user_id"`
	PatternsProgress    []PatternProgress `json:"patterns_progress"`
	QuizAttempts        []Attempt         `json:"quiz_attempts"`
	DiagnosticAttempts  []Attempt         `json:"diagnostic_attempts"`
	QuizScore           int               `json:"quiz_score"`
	TotalPatternsViewed int               `json:"total_patterns_viewed"`
	CorrectQuizCount    int               `json:"correct_quiz_count"`
	TotalQuizAttempts   int               `json:"total_quiz_attempts"`
	DiagnosticScore     int               `json:"diagnostic_score"`
	DiagnosticCompleted bool              `json:"diagnostic_completed"`
	LastDiagnosticAt    *time.Time        `json:"last_diagnostic_attempt"`
	LastActive          time.Time         `json:"last_active"`
}

// NewProgressRecord is the one canonical default record shape. Every code
// path that creates a record goes through here.
func NewProgressRecord(userID int64, now time.Time) *ProgressRecord {
	return &ProgressRecord{
		UserID:             userID,
		PatternsProgress:   []PatternProgress{},
		QuizAttempts:       []Attempt{},
		DiagnosticAttempts: []Attempt{},
		LastActive:         now,
	}
}

// FindPattern returns the progress entry for a pattern, or nil.
func (p *ProgressRecord) FindPattern(patternID string) *PatternProgress {
	for i := range p.PatternsProgress {
		if p.PatternsProgress[i].PatternID == patternID {
			return &p.PatternsProgress[i]
		}
	}
	return nil
}

// FindDiagnosticAttempt returns the attempt for a question, or nil.
// Diagnostic attempts are keyed uniquely by question id.
func (p *ProgressRecord) FindDiagnosticAttempt(questionID string) *Attempt {
	for i := range p.DiagnosticAttempts {
		if p.DiagnosticAttempts[i].QuestionID == questionID {
			return &p.DiagnosticAttempts[i]
		}
	}
	return nil
}

type PatternProgress struct {
	PatternID    string    `json:"pattern_id"`
	Completed    bool      `json:"completed"`
	LastAccessed time.Time `json:"last_accessed"`
	ViewCount    int       `json:"view_count"`
}

// Attempt is one answered question. Quiz attempts append; diagnostic
// attempts overwrite in place per question id.
type Attempt struct {
	QuestionID     string    `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	Correct        bool      `json:"correct"`
	Timestamp      time.Time `json:"timestamp"`
	PatternTested  string    `json:"pattern_tested"`
}

// ── Operation results ───────────────────────────────────

type PatternViewResult struct {
	PatternID    string    `json:"pattern_id"`
	ViewCount    int       `json:"view_count"`
	Completed    bool      `json:"completed"`
	LastAccessed time.Time `json:"last_accessed"`
}

type CompletePatternResponse struct {
	PatternID string `json:"pattern_id"`
	Completed bool   `json:"completed"`
}

type QuizAnswerResponse struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	PatternTested string `json:"pattern_tested"`
}

type DiagnosticAnswerResponse struct {
	QuestionID          string `json:"question_id"`
	IsCorrect           bool   `json:"is_correct"`
	CorrectAnswer       string `json:"correct_answer"`
	Explanation         string `json:"explanation"`
	PatternTested       string `json:"pattern_tested"`
	DiagnosticCompleted bool   `json:"diagnostic_completed"`
}

// ── Derived views (recomputed on every read) ────────────

type PatternPerformance struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

type QuizProgressResponse struct {
	QuizAttempts       []Attempt                     `json:"quiz_attempts"`
	QuizScore          int                           `json:"quiz_score"`
	TotalQuestions     int                           `json:"total_questions"`
	TotalQuizAttempts  int                           `json:"total_quiz_attempts"`
	CorrectQuizCount   int                           `json:"correct_quiz_count"`
	IncorrectCount     int                           `json:"incorrect_count"`
	Accuracy           float64                       `json:"accuracy"`
	PatternPerformance map[string]PatternPerformance `json:"pattern_performance"`
}

type DiagnosticProgressResponse struct {
	DiagnosticAttempts  []Attempt                     `json:"diagnostic_attempts"`
	DiagnosticScore     int                           `json:"diagnostic_score"`
	TotalQuestions      int                           `json:"total_questions"`
	Accuracy            float64                       `json:"accuracy"`
	PatternPerformance  map[string]PatternPerformance `json:"pattern_performance"`
	DiagnosticCompleted bool                          `json:"diagnostic_completed"`
	LastDiagnosticAt    *time.Time                    `json:"last_diagnostic_attempt"`
}

type TopPattern struct {
	Pattern  string  `json:"pattern"`
	Accuracy float64 `json:"accuracy"`
	Attempts int     `json:"attempts"`
}

type QuizSummaryResponse struct {
	TotalAttempts int          `json:"total_attempts"`
	CorrectCount  int          `json:"correct_count"`
	Accuracy      float64      `json:"accuracy"`
	TopPatterns   []TopPattern `json:"top_patterns"`
}

type ContinueResponse struct {
	LastAnsweredIndex   int `json:"last_answered_index"`
	NextUnansweredIndex int `json:"next_unanswered_index"`
}

type PatternProgressResponse struct {
	PatternsProgress    []PatternProgress `json:"patterns_progress"`
	TotalPatternsViewed int               `json:"total_patterns_viewed"`
}

type PatternTally struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

type DashboardResponse struct {
	TotalPatternsViewed int                     `json:"total_patterns_viewed"`
	CompletedPatterns   int                     `json:"completed_patterns"`
	CompletionPercent   float64                 `json:"completion_percent"`
	QuizScore           int                     `json:"quiz_score"`
	QuizAttempts        int                     `json:"quiz_attempts"`
	QuizAccuracy        float64                 `json:"quiz_accuracy"`
	LastActive          *time.Time              `json:"last_active"`
	RecentPatterns      []string                `json:"recent_patterns"`
	MostViewedPatterns  []string                `json:"most_viewed_patterns"`
	PatternStats        map[string]PatternTally `json:"pattern_stats"`
}

// ProfileResponse is the profile endpoint payload; Progress is nil for
// users with no progress record.
type ProfileResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Role           Role             `json:"role"`
	ProfilePicture string           `json:"profile_picture,omitempty"`
	Progress       *ProfileProgress `json:"progress"`
}

type ProfileProgress struct {
	TotalPatternsViewed int       `json:"total_patterns_viewed"`
	QuizScore           int       `json:"quiz_score"`
	LastActive          time.Time `json:"last_active"`
}

// ReportRow is one line of the admin performance export. Users with no
// progress record still get a row of defaults.
type ReportRow struct {
	UserID              int64
	Name                string
	Email               string
	DiagnosticCompleted bool
	DiagnosticScore     int
	DiagnosticAttempts  int
	DiagnosticAccuracy  float64
	QuizScore           int
	QuizAttempts        int
	QuizAccuracy        float64
	PatternPerformance  string
	LastActive          *time.Time
}
