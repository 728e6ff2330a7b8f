package storage_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/JaimeStill/palette/pkg/storage"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{"runs/abc/stage-1/0f.png", nil},
		{"", storage.ErrEmptyKey},
		{"runs/../secrets", storage.ErrInvalidKey},
		{"/runs/abc", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		if err := storage.ValidateKey(tt.key); !errors.Is(err, tt.want) {
			t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.want)
		}
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", storage.ErrInvalidKey), http.StatusBadRequest},
		{storage.ErrInvalidMaxResults, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"", 50, false},
		{"10", 10, false},
		{"999999", storage.MaxListCap, false},
		{"0", 0, true},
		{"many", 0, true},
	}

	for _, tt := range tests {
		got, err := storage.ParseMaxResults(tt.in, 50)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMaxResults(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := storage.Config{}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error without connection string or account url")
	}

	t.Setenv("TEST_STORAGE_ACCOUNT_URL", "https://acct.blob.core.windows.net/")
	t.Setenv("TEST_STORAGE_MAX_LIST", "9000")

	cfg = storage.Config{}
	err := cfg.Finalize(&storage.Env{AccountURL: "TEST_STORAGE_ACCOUNT_URL", MaxListSize: "TEST_STORAGE_MAX_LIST"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContainerName != "palette-assets" || cfg.MaxListSize != storage.MaxListCap || cfg.MaxRetries != 3 {
		t.Errorf("got %+v", cfg)
	}
}

func TestNewFromConnectionString(t *testing.T) {
	cfg := storage.Config{
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	if _, err := storage.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("New: %v", err)
	}
}
