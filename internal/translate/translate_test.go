package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWithHealth(t, http.StatusOK)
}

func newServerWithHealth(t *testing.T, health int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(health)
			w.Write([]byte("{}"))
		case "/models":
			json.NewEncoder(w).Encode([]string{"transformer.wmt19.de-en", "transformer.wmt19.en-de"})
		case "/translate":
			var req translateRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(translateResponse{Translation: "[" + req.Model + "] " + req.Text})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoad_Registry(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c, err := Load(ctx, Options{ModelPath: "transformer.wmt19.de-en", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, err := c.Translate(ctx, "hallo welt")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if got != "[transformer.wmt19.de-en] hallo welt" {
		t.Errorf("Translate() = %q", got)
	}

	if _, err := Load(ctx, Options{ModelPath: "transformer.wmt19.fr-en", Endpoint: srv.URL}); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Load(unknown) error = %v, want ErrModelUnavailable", err)
	}
}

func TestLoad_LocalCheckpoint(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	for _, f := range []string{"model1.pt", "model2.pt", BPECodesFile} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := Load(context.Background(), Options{
		ModelPath: dir, Checkpoints: "model1.pt:model2.pt", FromLocal: true, Endpoint: srv.URL,
	}); err != nil {
		t.Fatalf("Load(local) error: %v", err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing checkpoint", Options{ModelPath: dir, Checkpoints: "model3.pt", FromLocal: true, Endpoint: srv.URL}},
		{"no checkpoints", Options{ModelPath: dir, FromLocal: true, Endpoint: srv.URL}},
		{"missing dir", Options{ModelPath: filepath.Join(dir, "nope"), Checkpoints: "model1.pt", FromLocal: true, Endpoint: srv.URL}},
		{"no endpoint", Options{ModelPath: dir, Checkpoints: "model1.pt", FromLocal: true}},
		{"empty path", Options{Endpoint: srv.URL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(context.Background(), tt.opts); !errors.Is(err, ErrModelUnavailable) {
				t.Errorf("Load() error = %v, want ErrModelUnavailable", err)
			}
		})
	}
}

func TestLoad_LocalCheckpointUnhealthyServer(t *testing.T) {
	srv := newServerWithHealth(t, http.StatusServiceUnavailable)
	dir := t.TempDir()
	for _, f := range []string{"model.pt", BPECodesFile} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	_, err := Load(context.Background(), Options{ModelPath: dir, Checkpoints: "model.pt", FromLocal: true, Endpoint: srv.URL})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Load() error = %v, want ErrModelUnavailable", err)
	}
}

func TestLoad_MissingBPECodes(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "model.pt"), []byte("x"), 0o600)

	_, err := Load(context.Background(), Options{ModelPath: dir, Checkpoints: "model.pt", FromLocal: true, Endpoint: "http://localhost:1"})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Load() error = %v, want ErrModelUnavailable", err)
	}
}
