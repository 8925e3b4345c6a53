package store

import (
	"testing"
)

func setupCaseworker(t *testing.T) (*SessionStore, *CaseworkerStore, int64) {
	t.Helper()
	db := setupTestDB(t)
	cs := NewCaseworkerStore(db)
	c, err := cs.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create caseworker: %v", err)
	}
	return NewSessionStore(db), cs, c.ID
}

func TestSessionCreate(t *testing.T) {
	ss, _, id := setupCaseworker(t)

	sess, err := ss.Create(id)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.CaseworkerID != id {
		t.Errorf("caseworker_id = %d, want %d", sess.CaseworkerID, id)
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, _, id := setupCaseworker(t)

	created, _ := ss.Create(id)
	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID {
		t.Errorf("id = %d, want %d", sess.ID, created.ID)
	}
}

func TestSessionGetByTokenUnknown(t *testing.T) {
	ss, _, _ := setupCaseworker(t)

	sess, err := ss.GetByToken("nope")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, _, id := setupCaseworker(t)

	created, _ := ss.Create(id)
	if err := ss.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sess, _ := ss.GetByToken(created.Token)
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestCaseworkerLookup(t *testing.T) {
	_, cs, id := setupCaseworker(t)

	c, err := cs.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if c == nil || c.ID != id {
		t.Fatalf("got %+v, want id %d", c, id)
	}
	hash, err := cs.GetPasswordHash(id)
	if err != nil {
		t.Fatalf("get hash: %v", err)
	}
	if hash != "hash" {
		t.Errorf("hash = %q, want %q", hash, "hash")
	}
	if _, err := cs.GetPasswordHash(999); err == nil {
		t.Error("expected error for unknown caseworker")
	}
}
