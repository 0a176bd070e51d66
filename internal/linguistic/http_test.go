package linguistic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fractal-lba/textaug/internal/remote"
)

func TestHTTPTagger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tag" {
			http.NotFound(w, r)
			return
		}
		var req tagRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "de_core_news_sm" {
			http.Error(w, "wrong model", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(tagResponse{Tokens: []Token{
			{Text: "hunde", POS: POSNoun},
			{Text: "bellen", POS: POSVerb},
		}})
	}))
	defer srv.Close()

	client, err := remote.New(remote.Options{BaseURL: srv.URL, Model: "de_core_news_sm"})
	if err != nil {
		t.Fatalf("remote.New() error: %v", err)
	}

	tokens, err := NewHTTPTagger(client).Tag(context.Background(), "hunde bellen")
	if err != nil {
		t.Fatalf("Tag() error: %v", err)
	}
	if len(tokens) != 2 || tokens[1].Index != 1 || tokens[1].POS != POSVerb {
		t.Errorf("Tag() = %+v, want two indexed tokens", tokens)
	}
}
