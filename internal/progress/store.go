package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tigercode/backend/internal/models"
)

// Store persists progress records as one JSONB document per user. Each
// save writes the whole document; the row upsert is atomic but concurrent
// writers for the same user overwrite each other (last write wins).
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the user's progress record, or (nil, nil) when none exists.
func (s *Store) Load(userID int64) (*models.ProgressRecord, error) {
	var doc []byte
	err := s.db.QueryRow(
		`SELECT doc FROM user_progress WHERE user_id = $1`,
		userID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress doc: %w", err)
	}

	var rec models.ProgressRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode progress doc: %w", err)
	}
	rec.UserID = userID
	return &rec, nil
}

// Save upserts the whole record as a single document.
func (s *Store) Save(rec *models.ProgressRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode progress doc: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO user_progress (user_id, doc, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		rec.UserID, doc,
	)
	if err != nil {
		return fmt.Errorf("save progress doc: %w", err)
	}
	return nil
}

// ListUsers returns every registered user, for the admin export join.
func (s *Store) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, COALESCE(profile_picture, ''), role, created_at, updated_at
		 FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.ProfilePicture,
			&u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
