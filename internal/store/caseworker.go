package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/casework/internal/model"
)

type CaseworkerStore struct {
	db *sql.DB
}

func NewCaseworkerStore(db *sql.DB) *CaseworkerStore {
	return &CaseworkerStore{db: db}
}

func scanCaseworker(scanner interface{ Scan(...any) error }) (*model.Caseworker, error) {
	var c model.Caseworker
	err := scanner.Scan(&c.ID, &c.Email, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const caseworkerCols = `id, email, name, created_at, updated_at`

// Create inserts a caseworker. passwordHash must already be hashed.
func (s *CaseworkerStore) Create(email, name, passwordHash string) (*model.Caseworker, error) {
	result, err := s.db.Exec(
		`INSERT INTO caseworkers (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert caseworker: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CaseworkerStore) GetByID(id int64) (*model.Caseworker, error) {
	row := s.db.QueryRow(`SELECT `+caseworkerCols+` FROM caseworkers WHERE id = ?`, id)
	c, err := scanCaseworker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get caseworker: %w", err)
	}
	return c, nil
}

func (s *CaseworkerStore) GetByEmail(email string) (*model.Caseworker, error) {
	row := s.db.QueryRow(`SELECT `+caseworkerCols+` FROM caseworkers WHERE email = ?`, email)
	c, err := scanCaseworker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get caseworker by email: %w", err)
	}
	return c, nil
}

func (s *CaseworkerStore) GetPasswordHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM caseworkers WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("caseworker not found")
	}
	if err != nil {
		return "", fmt.Errorf("query password hash: %w", err)
	}
	return hash, nil
}
