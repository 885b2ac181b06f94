package content

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tigercode/backend/internal/models"
)

// Store reads the curated content catalog: patterns, quiz questions, and
// diagnostic questions. The catalog is write-once (seeded) and read-only
// from the aggregator's perspective.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Patterns ────────────────────────────────────────────

func (s *Store) ListPatterns() ([]models.Pattern, error) {
	rows, err := s.db.Query(
		`SELECT id, pattern_id, title, description, icon, use_cases,
		        algorithmic_background, examples, created_at
		 FROM patterns ORDER BY pattern_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []models.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

// FindPatternByID looks a pattern up by its stable string id. Returns
// (nil, nil) when no such pattern exists.
func (s *Store) FindPatternByID(patternID string) (*models.Pattern, error) {
	row := s.db.QueryRow(
		`SELECT id, pattern_id, title, description, icon, use_cases,
		        algorithmic_background, examples, created_at
		 FROM patterns WHERE pattern_id = $1`,
		patternID,
	)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) CountPatterns() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM patterns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patterns: %w", err)
	}
	return n, nil
}

// ── Questions ───────────────────────────────────────────

func (s *Store) ListQuizQuestions() ([]models.Question, error) {
	return s.listQuestions("quiz_questions")
}

func (s *Store) FindQuizQuestionByID(questionID string) (*models.Question, error) {
	return s.findQuestion("quiz_questions", questionID)
}

func (s *Store) CountQuizQuestions() (int, error) {
	return s.countQuestions("quiz_questions")
}

func (s *Store) ListDiagnosticQuestions() ([]models.Question, error) {
	return s.listQuestions("diagnostic_questions")
}

func (s *Store) FindDiagnosticQuestionByID(questionID string) (*models.Question, error) {
	return s.findQuestion("diagnostic_questions", questionID)
}

func (s *Store) CountDiagnosticQuestions() (int, error) {
	return s.countQuestions("diagnostic_questions")
}

func (s *Store) listQuestions(table string) ([]models.Question, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, question_id, question, description, options,
		        correct_answer, explanation, created_at
		 FROM %s ORDER BY question_id`, table,
	))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// findQuestion returns (nil, nil) when the question does not exist.
func (s *Store) findQuestion(table, questionID string) (*models.Question, error) {
	row := s.db.QueryRow(fmt.Sprintf(
		`SELECT id, question_id, question, description, options,
		        correct_answer, explanation, created_at
		 FROM %s WHERE question_id = $1`, table,
	), questionID)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return q, err
}

func (s *Store) countQuestions(table string) (int, error) {
	var n int
	if err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// ── Row scanning ────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPattern(row rowScanner) (*models.Pattern, error) {
	var p models.Pattern
	var useCases, examples []byte
	err := row.Scan(&p.ID, &p.PatternID, &p.Title, &p.Description, &p.Icon,
		&useCases, &p.AlgorithmicBackground, &examples, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan pattern: %w", err)
	}
	if err := json.Unmarshal(useCases, &p.UseCases); err != nil {
		return nil, fmt.Errorf("decode use_cases: %w", err)
	}
	if err := json.Unmarshal(examples, &p.Examples); err != nil {
		return nil, fmt.Errorf("decode examples: %w", err)
	}
	return &p, nil
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var options []byte
	err := row.Scan(&q.ID, &q.QuestionID, &q.Question, &q.Description,
		&options, &q.CorrectAnswer, &q.Explanation, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return &q, nil
}
