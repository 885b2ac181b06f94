package content

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tigercode/backend/internal/models"
)

type patternsFile struct {
	Patterns []models.Pattern `json:"patterns"`
}

type questionsFile struct {
	Questions []models.Question `json:"questions"`
}

// Seed imports patterns.json, quiz.json, and diagnostic.json from dir into
// any catalog table that is still empty. Already-populated tables are left
// alone, so it is safe to run on every boot.
func Seed(db *sql.DB, dir string) error {
	store := NewStore(db)

	if n, err := store.CountPatterns(); err != nil {
		return err
	} else if n == 0 {
		patterns, err := readPatterns(filepath.Join(dir, "patterns.json"))
		if err != nil {
			return err
		}
		if err := insertPatterns(db, patterns); err != nil {
			return err
		}
		log.Printf("[seed] imported %d patterns", len(patterns))
	}

	for _, set := range []struct {
		table string
		file  string
		count func() (int, error)
	}{
		{"quiz_questions", "quiz.json", store.CountQuizQuestions},
		{"diagnostic_questions", "diagnostic.json", store.CountDiagnosticQuestions},
	} {
		n, err := set.count()
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		questions, err := readQuestions(filepath.Join(dir, set.file))
		if err != nil {
			return err
		}
		if err := insertQuestions(db, set.table, questions); err != nil {
			return err
		}
		log.Printf("[seed] imported %d questions into %s", len(questions), set.table)
	}

	return nil
}

func readPatterns(path string) ([]models.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f patternsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return f.Patterns, nil
}

func readQuestions(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f questionsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return f.Questions, nil
}

func insertPatterns(db *sql.DB, patterns []models.Pattern) error {
	for _, p := range patterns {
		useCases, err := json.Marshal(p.UseCases)
		if err != nil {
			return fmt.Errorf("encode use_cases: %w", err)
		}
		examples, err := json.Marshal(p.Examples)
		if err != nil {
			return fmt.Errorf("encode examples: %w", err)
		}
		_, err = db.Exec(
			`INSERT INTO patterns (pattern_id, title, description, icon, use_cases, algorithmic_background, examples)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (pattern_id) DO NOTHING`,
			p.PatternID, p.Title, p.Description, p.Icon, useCases, p.AlgorithmicBackground, examples,
		)
		if err != nil {
			return fmt.Errorf("insert pattern %s: %w", p.PatternID, err)
		}
	}
	return nil
}

func insertQuestions(db *sql.DB, table string, questions []models.Question) error {
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		_, err = db.Exec(fmt.Sprintf(
			`INSERT INTO %s (question_id, question, description, options, correct_answer, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (question_id) DO NOTHING`, table),
			q.QuestionID, q.Question, q.Description, options, q.CorrectAnswer, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.QuestionID, err)
		}
	}
	return nil
}
