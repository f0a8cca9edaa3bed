package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoginPersists(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManagerAt(dir)
	if err != nil {
		t.Fatalf("NewManagerAt: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("expected fresh manager to be logged out")
	}

	var verified Identity
	verify := func(ctx context.Context, id Identity) error {
		verified = id
		return nil
	}
	id, err := m.Login(context.Background(), Identity{ActorID: 10, Handle: "alice"}, verify)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.ContextID != 10 || verified.ContextID != 10 {
		t.Errorf("expected context to default to the actor id, got %d", id.ContextID)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("stat credentials: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	reloaded, err := NewManagerAt(dir)
	if err != nil {
		t.Fatalf("NewManagerAt: %v", err)
	}
	got := reloaded.Identity()
	if got == nil || got.ActorID != 10 || got.Handle != "alice" {
		t.Errorf("unexpected identity after reload: %+v", got)
	}
}

func TestLoginRejected(t *testing.T) {
	m, err := NewManagerAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewManagerAt: %v", err)
	}
	refuse := errors.New("403")
	_, err = m.Login(context.Background(), Identity{ActorID: 99}, func(context.Context, Identity) error { return refuse })
	if !errors.Is(err, refuse) {
		t.Errorf("expected verifier error, got %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("rejected identity must not be saved")
	}

	if _, err := m.Login(context.Background(), Identity{}, nil); err == nil {
		t.Error("expected error for zero id")
	}
}

func TestLogout(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManagerAt(dir)
	if _, err := m.Login(context.Background(), Identity{ActorID: 3}, nil); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.IsAuthenticated() || m.Identity() != nil {
		t.Error("expected logged out")
	}
	if _, err := os.Stat(filepath.Join(dir, "credentials.json")); !os.IsNotExist(err) {
		t.Errorf("expected credentials file removed, got %v", err)
	}
	// A second logout is harmless.
	if err := m.Logout(); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}
