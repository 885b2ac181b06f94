package models

import "time"

// Pattern is a curated study topic. PatternID is the stable string id the
// frontend and progress records reference; ID is the storage row id.
type Pattern struct {
	ID                    int64            `json:"-"`
	PatternID             string           `json:"id"`
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	Icon                  string           `json:"icon"`
	UseCases              []string         `json:"use_cases"`
	AlgorithmicBackground string           `json:"algorithmic_background"`
	Examples              []PatternExample `json:"examples"`
	CreatedAt             time.Time        `json:"created_at"`
}

type PatternExample struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Code        string `json:"code"`
}

// PatternSummary is the trimmed shape served by the pattern list endpoint.
type PatternSummary struct {
	PatternID   string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (p Pattern) Summary() PatternSummary {
	return PatternSummary{
		PatternID:   p.PatternID,
		Title:       p.Title,
		Description: p.Description,
		Icon:        p.Icon,
	}
}

// QuestionOption tags each answer choice with the pattern it tests.
type QuestionOption struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
}

// Question is a quiz or diagnostic question. Which question set it belongs
// to is determined by the table it is read from, not by the struct.
type Question struct {
	ID            int64            `json:"-"`
	QuestionID    string           `json:"id"`
	Question      string           `json:"question"`
	Description   string           `json:"description"`
	Options       []QuestionOption `json:"options"`
	CorrectAnswer string           `json:"correct_answer"`
	Explanation   string           `json:"explanation"`
	CreatedAt     time.Time        `json:"created_at"`
}

// PatternTested returns the pattern tag of the designated correct option.
// It identifies what topic the question tests regardless of which option
// the user selected. Empty when the correct option is missing.
func (q Question) PatternTested() string {
	for _, opt := range q.Options {
		if opt.ID == q.CorrectAnswer {
			return opt.Pattern
		}
	}
	return ""
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}
