package model

import "time"

type Session struct {
	ID           int64     `json:"id"`
	Token        string    `json:"-"`
	CaseworkerID int64     `json:"caseworker_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
