package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_Generate(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"response": "the answer"})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "test-model", "test-embed")
	out, err := o.Generate(context.Background(), "the prompt", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "the answer" {
		t.Errorf("expected completion text, got %q", out)
	}
	if gotPath != "/api/generate" {
		t.Errorf("expected /api/generate, got %s", gotPath)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model not forwarded: %v", gotBody["model"])
	}
	opts, _ := gotBody["options"].(map[string]any)
	if opts["num_predict"] != float64(200) {
		t.Errorf("num_predict not set: %v", gotBody["options"])
	}
	if gotBody["stream"] != false {
		t.Errorf("streaming must be disabled, got %v", gotBody["stream"])
	}
}

func TestOllama_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "missing", "embed")
	if _, err := o.Generate(context.Background(), "p", 0); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestOllama_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", "e")
	vec, err := o.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3-dim vector, got %d", len(vec))
	}
}

func TestOllama_EmbedEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", "e")
	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestOllama_IsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	o := NewOllama(srv.URL, "m", "e")
	if !o.IsRunning(context.Background()) {
		t.Error("expected running against live server")
	}
	srv.Close()
	if o.IsRunning(context.Background()) {
		t.Error("expected not running after server close")
	}
}
