package database_test

import (
	"testing"

	"github.com/JaimeStill/palette/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{User: "palette"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"name", cfg.Name, "palette"},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 25},
		{"max_idle_conns", cfg.MaxIdleConns, 5},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_USER", "envuser")
	t.Setenv("TEST_DB_MAX_OPEN", "40")

	env := &database.Env{
		Host:         "TEST_DB_HOST",
		Port:         "TEST_DB_PORT",
		User:         "TEST_DB_USER",
		MaxOpenConns: "TEST_DB_MAX_OPEN",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Host != "db.internal" || cfg.Port != 6543 || cfg.User != "envuser" || cfg.MaxOpenConns != 40 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
	}{
		{"no url or user", database.Config{}},
		{"idle exceeds open", database.Config{User: "u", MaxOpenConns: 2, MaxIdleConns: 4}},
		{"bad lifetime", database.Config{User: "u", ConnMaxLifetime: "soon"}},
		{"bad timeout", database.Config{User: "u", ConnTimeout: "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{User: "u", Password: "p", Name: "art"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	want := "host=localhost port=5432 dbname=art user=u password=p sslmode=disable"
	if got := cfg.Dsn(); got != want {
		t.Errorf("Dsn: got %q, want %q", got, want)
	}

	wantURL := "postgres://u:p@localhost:5432/art?sslmode=disable"
	if got := cfg.MigrationURL(); got != wantURL {
		t.Errorf("MigrationURL: got %q, want %q", got, wantURL)
	}
}

func TestURLTakesPrecedence(t *testing.T) {
	url := "postgres://a:b@pg:5432/palette"
	cfg := database.Config{URL: url}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("url-only config should validate: %v", err)
	}
	if cfg.Dsn() != url || cfg.MigrationURL() != url {
		t.Errorf("url not used: %s / %s", cfg.Dsn(), cfg.MigrationURL())
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "a", Port: 1, User: "x"}
	base.Merge(&database.Config{Host: "b", Password: "secret"})

	if base.Host != "b" || base.Port != 1 || base.User != "x" || base.Password != "secret" {
		t.Errorf("merge result: %+v", base)
	}
}
