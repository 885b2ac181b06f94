package progress

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/tigercode/backend/internal/models"
)

var reportHeader = []string{
	"User ID", "Name", "Email",
	"Diagnostic Completed", "Diagnostic Score", "Diagnostic Attempts", "Diagnostic Accuracy",
	"Quiz Score", "Quiz Attempts", "Quiz Accuracy",
	"Pattern Performance", "Last Active",
}

// ExportReport flattens every user's identity and progress into one row
// each. Users with no progress record get a row of defaults rather than
// being omitted.
func (s *Service) ExportReport() ([]models.ReportRow, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rows := make([]models.ReportRow, 0, len(users))
	for _, u := range users {
		row := models.ReportRow{UserID: u.ID, Name: u.Name, Email: u.Email}

		rec, err := s.store.Load(u.ID)
		if err != nil {
			return nil, fmt.Errorf("load progress for user %d: %w", u.ID, err)
		}
		if rec != nil {
			correct := 0
			for _, a := range rec.DiagnosticAttempts {
				if a.Correct {
					correct++
				}
			}
			row.DiagnosticCompleted = rec.DiagnosticCompleted
			row.DiagnosticScore = rec.DiagnosticScore
			row.DiagnosticAttempts = len(rec.DiagnosticAttempts)
			row.DiagnosticAccuracy = accuracy(correct, len(rec.DiagnosticAttempts))
			row.QuizScore = rec.CorrectQuizCount
			row.QuizAttempts = rec.TotalQuizAttempts
			row.QuizAccuracy = accuracy(rec.CorrectQuizCount, rec.TotalQuizAttempts)
			row.PatternPerformance = formatPatternPerformance(rec.DiagnosticAttempts)
			lastActive := rec.LastActive
			row.LastActive = &lastActive
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteReportCSV streams the export as CSV.
func (s *Service) WriteReportCSV(w io.Writer) error {
	rows, err := s.ExportReport()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		completed := "No"
		if row.DiagnosticCompleted {
			completed = "Yes"
		}
		lastActive := "N/A"
		if row.LastActive != nil {
			lastActive = row.LastActive.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatInt(row.UserID, 10),
			row.Name,
			row.Email,
			completed,
			strconv.Itoa(row.DiagnosticScore),
			strconv.Itoa(row.DiagnosticAttempts),
			fmt.Sprintf("%.1f%%", row.DiagnosticAccuracy),
			strconv.Itoa(row.QuizScore),
			strconv.Itoa(row.QuizAttempts),
			fmt.Sprintf("%.1f%%", row.QuizAccuracy),
			row.PatternPerformance,
			lastActive,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatPatternPerformance renders per-pattern accuracy as a
// "pattern:accuracy%" list joined by "; ", in pattern order.
func formatPatternPerformance(attempts []models.Attempt) string {
	perf := patternPerformance(attempts)
	patterns := make([]string, 0, len(perf))
	for p := range perf {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	out := ""
	for i, p := range patterns {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s:%.1f%%", p, perf[p].Accuracy)
	}
	return out
}
