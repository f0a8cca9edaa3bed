package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/taskdesk/internal/auth"
)

func withAPI(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	old := apiAddr
	apiAddr = srv.URL
	t.Cleanup(func() { apiAddr = old })
}

func TestAPIRequestAsSendsIdentity(t *testing.T) {
	var gotActor, gotContext string
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotActor = r.Header.Get("X-Actor-ID")
		gotContext = r.Header.Get("X-Context-ID")
		w.Write([]byte(`{"tasks":[]}`))
	})

	body, err := apiRequestAs(auth.Identity{ActorID: 10, ContextID: -100}, http.MethodGet, "/tasks", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotActor != "10" || gotContext != "-100" {
		t.Errorf("headers = %q/%q, want 10/-100", gotActor, gotContext)
	}
	if string(body) != `{"tasks":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestAPIRequestAsReportsAPIError(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"not permitted: user 10 may not delete task","kind":"not_permitted"}`))
	})

	_, err := apiRequestAs(auth.Identity{ActorID: 10, ContextID: 10}, http.MethodDelete, "/tasks/1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API error (403)") || !strings.Contains(err.Error(), "not permitted") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCurrentIdentityFromFlags(t *testing.T) {
	asUser, asChat = 7, 0
	t.Cleanup(func() { asUser, asChat = 0, 0 })

	id, err := currentIdentity()
	if err != nil {
		t.Fatalf("currentIdentity: %v", err)
	}
	if id.ActorID != 7 || id.ContextID != 7 {
		t.Errorf("identity = %+v, want actor 7 in chat 7", id)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	old := configPath
	configPath = filepath.Join(t.TempDir(), "config.yaml")
	t.Cleanup(func() { configPath = old })

	if err := daemonCmd.Flags().Set("listen", "127.0.0.1:9999"); err != nil {
		t.Fatal(err)
	}
	if err := daemonCmd.Flags().Set("admin", "42"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(daemonCmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.AdminID != 42 {
		t.Errorf("admin = %d", cfg.AdminID)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("привет, мир и все остальные", 10); got != "привет,..." {
		t.Errorf("truncate = %q", got)
	}
}
