package progress

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tigercode/backend/internal/models"
)

// fakeStore keeps progress documents in memory. Load and Save deep-copy
// through JSON the same way the SQL store round-trips the JSONB column,
// so Save is the only way a mutation becomes visible.
type fakeStore struct {
	recs  map[int64]*models.ProgressRecord
	users []models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[int64]*models.ProgressRecord{}}
}

func (f *fakeStore) Load(userID int64) (*models.ProgressRecord, error) {
	rec, ok := f.recs[userID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (f *fakeStore) Save(rec *models.ProgressRecord) error {
	f.recs[rec.UserID] = copyRecord(rec)
	return nil
}

func (f *fakeStore) ListUsers() ([]models.User, error) {
	return f.users, nil
}

func copyRecord(rec *models.ProgressRecord) *models.ProgressRecord {
	b, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	var out models.ProgressRecord
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

type fakeCatalog struct {
	patterns   []models.Pattern
	quiz       []models.Question
	diagnostic []models.Question
}

func (f *fakeCatalog) FindPatternByID(id string) (*models.Pattern, error) {
	for i := range f.patterns {
		if f.patterns[i].PatternID == id {
			return &f.patterns[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) CountPatterns() (int, error) { return len(f.patterns), nil }

func (f *fakeCatalog) FindQuizQuestionByID(id string) (*models.Question, error) {
	return findQuestionIn(f.quiz, id), nil
}

func (f *fakeCatalog) ListQuizQuestions() ([]models.Question, error) { return f.quiz, nil }

func (f *fakeCatalog) CountQuizQuestions() (int, error) { return len(f.quiz), nil }

func (f *fakeCatalog) FindDiagnosticQuestionByID(id string) (*models.Question, error) {
	return findQuestionIn(f.diagnostic, id), nil
}

func (f *fakeCatalog) CountDiagnosticQuestions() (int, error) { return len(f.diagnostic), nil }

func findQuestionIn(questions []models.Question, id string) *models.Question {
	for i := range questions {
		if questions[i].QuestionID == id {
			return &questions[i]
		}
	}
	return nil
}

func testQuestion(id, pattern string) models.Question {
	return models.Question{
		QuestionID:    id,
		Question:      "pick one",
		CorrectAnswer: "a",
		Explanation:   "a is right",
		Options: []models.QuestionOption{
			{ID: "a", Pattern: pattern},
			{ID: "b", Pattern: "decoy"},
		},
	}
}

func testService(catalog *fakeCatalog) (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, catalog), store
}

func TestRecordPatternViewFirstAndRepeat(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		patterns: []models.Pattern{{PatternID: "two-pointers"}, {PatternID: "sliding-window"}},
	})

	got, err := svc.RecordPatternView(1, "two-pointers")
	if err != nil {
		t.Fatalf("RecordPatternView: %v", err)
	}
	if got.ViewCount != 1 {
		t.Errorf("first view count = %d, want 1", got.ViewCount)
	}
	if got.Completed {
		t.Error("first view should not be completed")
	}
	if store.recs[1].TotalPatternsViewed != 1 {
		t.Errorf("totalPatternsViewed = %d, want 1", store.recs[1].TotalPatternsViewed)
	}

	got, err = svc.RecordPatternView(1, "two-pointers")
	if err != nil {
		t.Fatalf("RecordPatternView: %v", err)
	}
	if got.ViewCount != 2 {
		t.Errorf("second view count = %d, want 2", got.ViewCount)
	}

	rec := store.recs[1]
	if len(rec.PatternsProgress) != 1 {
		t.Fatalf("pattern entries = %d, want 1", len(rec.PatternsProgress))
	}
	if rec.TotalPatternsViewed != 1 {
		t.Errorf("totalPatternsViewed after repeat = %d, want 1", rec.TotalPatternsViewed)
	}
}

func TestTotalPatternsViewedNeverExceedsCatalog(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		patterns: []models.Pattern{{PatternID: "p1"}, {PatternID: "p2"}},
	})

	// A pattern can disappear from the catalog after being viewed; the
	// running total still must not exceed what currently exists.
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := svc.RecordPatternView(1, id); err != nil {
			t.Fatalf("RecordPatternView(%s): %v", id, err)
		}
	}

	if got := store.recs[1].TotalPatternsViewed; got != 2 {
		t.Errorf("totalPatternsViewed = %d, want 2", got)
	}
}

func TestCompletePattern(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		patterns: []models.Pattern{{PatternID: "two-pointers"}},
	})

	if _, err := svc.CompletePattern(1, "no-such"); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("CompletePattern(no-such) err = %v, want ErrPatternNotFound", err)
	}

	got, err := svc.CompletePattern(1, "two-pointers")
	if err != nil {
		t.Fatalf("CompletePattern: %v", err)
	}
	if !got.Completed {
		t.Error("response should report completed")
	}

	// Completing without a prior view creates the entry.
	rec := store.recs[1]
	if len(rec.PatternsProgress) != 1 || !rec.PatternsProgress[0].Completed {
		t.Fatalf("entry = %+v, want one completed entry", rec.PatternsProgress)
	}
	if rec.PatternsProgress[0].ViewCount != 1 {
		t.Errorf("viewCount = %d, want 1", rec.PatternsProgress[0].ViewCount)
	}

	// Idempotent on repeat.
	if _, err := svc.CompletePattern(1, "two-pointers"); err != nil {
		t.Fatalf("CompletePattern repeat: %v", err)
	}
	rec = store.recs[1]
	if len(rec.PatternsProgress) != 1 {
		t.Errorf("entries after repeat = %d, want 1", len(rec.PatternsProgress))
	}
	if !rec.PatternsProgress[0].Completed {
		t.Error("entry should stay completed")
	}
}

func TestSubmitQuizAnswerCounters(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		quiz: []models.Question{testQuestion("q1", "two-pointers")},
	})

	answers := []struct {
		answer      string
		wantCorrect bool
	}{
		{"a", true},
		{"b", false},
		{"a", true},
	}
	for _, tt := range answers {
		got, err := svc.SubmitQuizAnswer(1, "q1", tt.answer)
		if err != nil {
			t.Fatalf("SubmitQuizAnswer(%s): %v", tt.answer, err)
		}
		if got.IsCorrect != tt.wantCorrect {
			t.Errorf("SubmitQuizAnswer(%s).IsCorrect = %v, want %v", tt.answer, got.IsCorrect, tt.wantCorrect)
		}
		if got.PatternTested != "two-pointers" {
			t.Errorf("PatternTested = %q, want two-pointers", got.PatternTested)
		}
	}

	rec := store.recs[1]
	if len(rec.QuizAttempts) != 3 {
		t.Errorf("attempts = %d, want 3 (repeat answers keep history)", len(rec.QuizAttempts))
	}
	if rec.TotalQuizAttempts != 3 {
		t.Errorf("totalQuizAttempts = %d, want 3", rec.TotalQuizAttempts)
	}
	if rec.CorrectQuizCount != 2 {
		t.Errorf("correctQuizCount = %d, want 2", rec.CorrectQuizCount)
	}
	if rec.QuizScore != 2 {
		t.Errorf("quizScore = %d, want 2", rec.QuizScore)
	}
}

func TestSubmitQuizAnswerUnknownQuestion(t *testing.T) {
	svc, _ := testService(&fakeCatalog{})
	if _, err := svc.SubmitQuizAnswer(1, "nope", "a"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestQuizProgressNoRecord(t *testing.T) {
	svc, _ := testService(&fakeCatalog{
		quiz: []models.Question{testQuestion("q1", "p"), testQuestion("q2", "p")},
	})

	got, err := svc.QuizProgress(42)
	if err != nil {
		t.Fatalf("QuizProgress: %v", err)
	}
	if got.Accuracy != 0 {
		t.Errorf("accuracy with no attempts = %f, want 0", got.Accuracy)
	}
	if got.TotalQuestions != 2 {
		t.Errorf("totalQuestions = %d, want 2", got.TotalQuestions)
	}
	if got.QuizAttempts == nil || len(got.QuizAttempts) != 0 {
		t.Errorf("quizAttempts = %v, want empty slice", got.QuizAttempts)
	}
	if got.PatternPerformance == nil {
		t.Error("patternPerformance should be an empty map, not nil")
	}
}

func TestQuizProgressDerivedStats(t *testing.T) {
	svc, _ := testService(&fakeCatalog{
		quiz: []models.Question{
			testQuestion("q1", "two-pointers"),
			testQuestion("q2", "sliding-window"),
		},
	})

	mustSubmitQuiz(t, svc, 1, "q1", "a")
	mustSubmitQuiz(t, svc, 1, "q2", "b")

	got, err := svc.QuizProgress(1)
	if err != nil {
		t.Fatalf("QuizProgress: %v", err)
	}
	if got.Accuracy != 50 {
		t.Errorf("accuracy = %f, want 50", got.Accuracy)
	}
	if got.IncorrectCount != 1 {
		t.Errorf("incorrectCount = %d, want 1", got.IncorrectCount)
	}
	perf, ok := got.PatternPerformance["two-pointers"]
	if !ok {
		t.Fatalf("patternPerformance missing two-pointers: %v", got.PatternPerformance)
	}
	if perf.Correct != 1 || perf.Total != 1 || perf.Accuracy != 100 {
		t.Errorf("two-pointers perf = %+v, want 1/1 at 100%%", perf)
	}
}

func TestQuizSummaryTopPatterns(t *testing.T) {
	svc, _ := testService(&fakeCatalog{
		quiz: []models.Question{
			testQuestion("q1", "arrays"),
			testQuestion("q2", "graphs"),
			testQuestion("q3", "heaps"),
			testQuestion("q4", "tries"),
		},
	})

	mustSubmitQuiz(t, svc, 1, "q1", "a") // arrays 1/1
	mustSubmitQuiz(t, svc, 1, "q2", "b") // graphs 0/1
	mustSubmitQuiz(t, svc, 1, "q3", "a") // heaps 1/1
	mustSubmitQuiz(t, svc, 1, "q4", "a") // tries 1/1

	got, err := svc.QuizSummary(1)
	if err != nil {
		t.Fatalf("QuizSummary: %v", err)
	}
	if got.TotalAttempts != 4 || got.CorrectCount != 3 {
		t.Errorf("attempts/correct = %d/%d, want 4/3", got.TotalAttempts, got.CorrectCount)
	}
	if got.Accuracy != 75 {
		t.Errorf("accuracy = %f, want 75", got.Accuracy)
	}
	if len(got.TopPatterns) != 3 {
		t.Fatalf("topPatterns = %d entries, want 3", len(got.TopPatterns))
	}
	// Three patterns tie at 100%; alphabetical order breaks the tie and
	// graphs at 0% drops off entirely.
	want := []string{"arrays", "heaps", "tries"}
	for i, w := range want {
		if got.TopPatterns[i].Pattern != w {
			t.Errorf("topPatterns[%d] = %q, want %q", i, got.TopPatterns[i].Pattern, w)
		}
	}
}

func TestContinuePoint(t *testing.T) {
	svc, _ := testService(&fakeCatalog{
		quiz: []models.Question{
			testQuestion("q1", "p"),
			testQuestion("q2", "p"),
			testQuestion("q3", "p"),
		},
	})

	got, err := svc.ContinuePoint(1)
	if err != nil {
		t.Fatalf("ContinuePoint: %v", err)
	}
	if got.LastAnsweredIndex != -1 || got.NextUnansweredIndex != 0 {
		t.Errorf("fresh user = %+v, want {-1 0}", got)
	}

	mustSubmitQuiz(t, svc, 1, "q1", "a")
	mustSubmitQuiz(t, svc, 1, "q3", "a")

	got, err = svc.ContinuePoint(1)
	if err != nil {
		t.Fatalf("ContinuePoint: %v", err)
	}
	if got.LastAnsweredIndex != 2 {
		t.Errorf("lastAnsweredIndex = %d, want 2 (q3 answered most recently)", got.LastAnsweredIndex)
	}
	if got.NextUnansweredIndex != 1 {
		t.Errorf("nextUnansweredIndex = %d, want 1 (q2 untouched)", got.NextUnansweredIndex)
	}
}

func TestSubmitDiagnosticAnswerOverwrites(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		diagnostic: []models.Question{
			testQuestion("d1", "two-pointers"),
			testQuestion("d2", "sliding-window"),
		},
	})

	// Wrong first, then right: one stored entry, score goes up once.
	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "b"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if got := store.recs[1].DiagnosticScore; got != 0 {
		t.Errorf("score after wrong answer = %d, want 0", got)
	}

	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "a"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	rec := store.recs[1]
	if len(rec.DiagnosticAttempts) != 1 {
		t.Fatalf("attempts = %d, want 1 (re-answer overwrites)", len(rec.DiagnosticAttempts))
	}
	if rec.DiagnosticAttempts[0].SelectedAnswer != "a" || !rec.DiagnosticAttempts[0].Correct {
		t.Errorf("stored attempt = %+v, want the replacement answer", rec.DiagnosticAttempts[0])
	}
	if rec.DiagnosticScore != 1 {
		t.Errorf("score after correction = %d, want 1", rec.DiagnosticScore)
	}
	if rec.LastDiagnosticAt == nil {
		t.Error("lastDiagnosticAttempt should be set")
	}
}

func TestDiagnosticScoreNeverDecreases(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		diagnostic: []models.Question{
			testQuestion("d1", "p"),
			testQuestion("d2", "p"),
		},
	})

	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "a"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "b"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}

	rec := store.recs[1]
	if rec.DiagnosticScore != 1 {
		t.Errorf("score = %d, want 1 (replacing correct with wrong keeps the point)", rec.DiagnosticScore)
	}
	if rec.DiagnosticAttempts[0].Correct {
		t.Error("stored attempt should reflect the latest, incorrect answer")
	}

	// Answering correctly again must not double count.
	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "a"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "a"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if got := store.recs[1].DiagnosticScore; got != 2 {
		t.Errorf("score = %d, want 2 (one regain, no double count)", got)
	}
}

func TestDiagnosticCompletion(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		diagnostic: []models.Question{
			testQuestion("d1", "two-pointers"),
			testQuestion("d2", "sliding-window"),
		},
	})

	resp, err := svc.SubmitDiagnosticAnswer(1, "d1", "a")
	if err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if resp.DiagnosticCompleted {
		t.Error("one of two answered should not be completed")
	}

	resp, err = svc.SubmitDiagnosticAnswer(1, "d2", "b")
	if err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if !resp.DiagnosticCompleted {
		t.Error("all questions answered, diagnostic should be completed")
	}

	got, err := svc.DiagnosticProgress(1)
	if err != nil {
		t.Fatalf("DiagnosticProgress: %v", err)
	}
	if got.DiagnosticScore != 1 {
		t.Errorf("score = %d, want 1", got.DiagnosticScore)
	}
	if got.Accuracy != 50 {
		t.Errorf("accuracy = %f, want 50", got.Accuracy)
	}
	if !got.DiagnosticCompleted {
		t.Error("progress should report completed")
	}
	if !store.recs[1].DiagnosticCompleted {
		t.Error("completion should be persisted")
	}
}

func TestDiagnosticProgressBackfillsCompletion(t *testing.T) {
	catalog := &fakeCatalog{
		diagnostic: []models.Question{
			testQuestion("d1", "p"),
			testQuestion("d2", "p"),
		},
	}
	svc, store := testService(catalog)

	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "a"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}

	// The question set shrinks after the attempt; the next read detects
	// completion and persists the flag.
	catalog.diagnostic = catalog.diagnostic[:1]

	got, err := svc.DiagnosticProgress(1)
	if err != nil {
		t.Fatalf("DiagnosticProgress: %v", err)
	}
	if !got.DiagnosticCompleted {
		t.Error("read should detect completion against the shrunken set")
	}
	if !store.recs[1].DiagnosticCompleted {
		t.Error("detected completion should be written back")
	}
}

func TestCompleteDiagnosticManually(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		diagnostic: []models.Question{testQuestion("d1", "p"), testQuestion("d2", "p")},
	})

	if err := svc.CompleteDiagnostic(1); err != nil {
		t.Fatalf("CompleteDiagnostic: %v", err)
	}
	rec := store.recs[1]
	if !rec.DiagnosticCompleted {
		t.Error("manual complete should set the flag")
	}
	if rec.LastDiagnosticAt == nil {
		t.Error("manual complete should stamp lastDiagnosticAttempt")
	}

	// The flag is one way; more answers never unset it.
	if _, err := svc.SubmitDiagnosticAnswer(1, "d1", "b"); err != nil {
		t.Fatalf("SubmitDiagnosticAnswer: %v", err)
	}
	if !store.recs[1].DiagnosticCompleted {
		t.Error("completion must survive further attempts")
	}
}

func TestEnsureRecordDoesNotClobber(t *testing.T) {
	svc, store := testService(&fakeCatalog{
		quiz: []models.Question{testQuestion("q1", "p")},
	})

	if err := svc.EnsureRecord(1); err != nil {
		t.Fatalf("EnsureRecord: %v", err)
	}
	mustSubmitQuiz(t, svc, 1, "q1", "a")

	if err := svc.EnsureRecord(1); err != nil {
		t.Fatalf("EnsureRecord repeat: %v", err)
	}
	if got := store.recs[1].TotalQuizAttempts; got != 1 {
		t.Errorf("totalQuizAttempts = %d, want 1 (existing record left alone)", got)
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := testService(&fakeCatalog{
		patterns: []models.Pattern{
			{PatternID: "arrays"}, {PatternID: "graphs"},
			{PatternID: "heaps"}, {PatternID: "tries"},
		},
		quiz: []models.Question{
			testQuestion("q1", "arrays"),
			testQuestion("q2", "graphs"),
		},
	})

	for _, id := range []string{"arrays", "graphs", "heaps", "tries"} {
		if _, err := svc.RecordPatternView(1, id); err != nil {
			t.Fatalf("RecordPatternView(%s): %v", id, err)
		}
	}
	if _, err := svc.CompletePattern(1, "arrays"); err != nil {
		t.Fatalf("CompletePattern: %v", err)
	}
	mustSubmitQuiz(t, svc, 1, "q1", "a")
	mustSubmitQuiz(t, svc, 1, "q2", "b")

	got, err := svc.Dashboard(1)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got.TotalPatternsViewed != 4 {
		t.Errorf("totalPatternsViewed = %d, want 4", got.TotalPatternsViewed)
	}
	if got.CompletedPatterns != 1 {
		t.Errorf("completedPatterns = %d, want 1", got.CompletedPatterns)
	}
	if got.CompletionPercent != 25 {
		t.Errorf("completionPercent = %f, want 25", got.CompletionPercent)
	}
	if got.QuizAccuracy != 50 {
		t.Errorf("quizAccuracy = %f, want 50", got.QuizAccuracy)
	}
	if len(got.RecentPatterns) != 3 {
		t.Errorf("recentPatterns = %v, want 3 entries", got.RecentPatterns)
	}
	tally, ok := got.PatternStats["graphs"]
	if !ok {
		t.Fatalf("patternStats missing graphs: %v", got.PatternStats)
	}
	if tally.Correct != 0 || tally.Incorrect != 1 {
		t.Errorf("graphs tally = %+v, want 0 correct 1 incorrect", tally)
	}
}

func TestDashboardNoRecord(t *testing.T) {
	svc, _ := testService(&fakeCatalog{})
	got, err := svc.Dashboard(99)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got.QuizAccuracy != 0 || got.CompletionPercent != 0 {
		t.Errorf("fresh dashboard accuracies = %f/%f, want 0/0", got.QuizAccuracy, got.CompletionPercent)
	}
	if got.RecentPatterns == nil || got.PatternStats == nil {
		t.Error("fresh dashboard should use empty collections, not nil")
	}
	if got.LastActive != nil {
		t.Errorf("lastActive = %v, want nil", got.LastActive)
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 2, 50},
		{3, 4, 75},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := accuracy(tt.correct, tt.total); got != tt.want {
			t.Errorf("accuracy(%d, %d) = %f, want %f", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestProfileProgress(t *testing.T) {
	svc, store := testService(&fakeCatalog{})

	got, err := svc.ProfileProgress(1)
	if err != nil {
		t.Fatalf("ProfileProgress: %v", err)
	}
	if got != nil {
		t.Errorf("profile progress with no record = %+v, want nil", got)
	}

	rec := models.NewProgressRecord(1, time.Now())
	rec.TotalPatternsViewed = 3
	rec.QuizScore = 7
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err = svc.ProfileProgress(1)
	if err != nil {
		t.Fatalf("ProfileProgress: %v", err)
	}
	if got == nil || got.TotalPatternsViewed != 3 || got.QuizScore != 7 {
		t.Errorf("profile progress = %+v, want 3 viewed, score 7", got)
	}
}

func mustSubmitQuiz(t *testing.T, svc *Service, userID int64, questionID, answer string) {
	t.Helper()
	if _, err := svc.SubmitQuizAnswer(userID, questionID, answer); err != nil {
		t.Fatalf("SubmitQuizAnswer(%s, %s): %v", questionID, answer, err)
	}
}
