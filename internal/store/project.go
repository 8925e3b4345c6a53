package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/casework/internal/model"
)

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectCols = `id, name, created_at, updated_at`

func (s *ProjectStore) Create(name string) (*model.Project, error) {
	result, err := s.db.Exec(`INSERT INTO projects (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProjectStore) GetByID(id int64) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRow(`SELECT `+projectCols+` FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

const clientCols = `id, first_name, last_name, created_at, updated_at`

func (s *ClientStore) Create(firstName, lastName string) (*model.Client, error) {
	result, err := s.db.Exec(
		`INSERT INTO clients (first_name, last_name) VALUES (?, ?)`,
		firstName, lastName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ClientStore) GetByID(id int64) (*model.Client, error) {
	var c model.Client
	err := s.db.QueryRow(`SELECT `+clientCols+` FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}
