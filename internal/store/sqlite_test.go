package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inboxsweep/internal/model"

	"golang.org/x/oauth2"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) model.Session {
	return model.Session{
		UserID:  id,
		Email:   id + "@example.com",
		Name:    "User " + id,
		Picture: "https://pics/" + id,
		Token: &oauth2.Token{
			AccessToken:  "access-" + id,
			RefreshToken: "refresh-" + id,
			TokenType:    "Bearer",
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		LoginTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := s.GetSession(ctx, "1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session")
	}
	if got.Email != "1@example.com" || got.Picture != "https://pics/1" {
		t.Fatalf("profile got %+v", got)
	}
	if got.Token.AccessToken != "access-1" || got.Token.RefreshToken != "refresh-1" {
		t.Fatalf("token got %+v", got.Token)
	}
	if !got.Token.Expiry.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expiry got %v", got.Token.Expiry)
	}
	if !got.LoginTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("login time got %v", got.LoginTime)
	}

	// Save again should replace the token
	updated := testSession("1")
	updated.Token.AccessToken = "rotated"
	if err := s.SaveSession(ctx, updated); err != nil {
		t.Fatalf("SaveSession update: %v", err)
	}
	got, _ = s.GetSession(ctx, "1")
	if got.Token.AccessToken != "rotated" {
		t.Fatalf("upsert did not replace token, got %q", got.Token.AccessToken)
	}
	if count, _ := s.CountSessions(ctx); count != 1 {
		t.Fatalf("expected 1 session, got %d", count)
	}
}

func TestGetSessionMissing(t *testing.T) {
	s := testStore(t)
	got, err := s.GetSession(context.Background(), "nobody")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.SaveSession(ctx, testSession("1"))
	s.SaveSession(ctx, testSession("2"))

	now = now.Add(2 * time.Hour)
	s.SaveSession(ctx, testSession("3"))

	if got, _ := s.GetSession(ctx, "1"); got != nil {
		t.Fatal("expired session should not be returned")
	}
	if got, _ := s.GetSession(ctx, "3"); got == nil {
		t.Fatal("fresh session should be returned")
	}

	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}
	if count, _ := s.CountSessions(ctx); count != 1 {
		t.Fatalf("expected 1 left, got %d", count)
	}
}

func TestDeleteSession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.SaveSession(ctx, testSession("1"))
	if err := s.DeleteSession(ctx, "1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got, _ := s.GetSession(ctx, "1"); got != nil {
		t.Fatal("session should be gone")
	}
}
