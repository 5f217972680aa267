package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/ragqa/internal/embedding"
	"github.com/mwiater/ragqa/internal/rag"
	"github.com/mwiater/ragqa/internal/vectorindex"
)

type stubAsker struct {
	err      error
	question string
}

func (s *stubAsker) Ask(_ context.Context, q string) (rag.Response, error) {
	s.question = q
	if s.err != nil {
		return rag.Response{}, s.err
	}
	return rag.Response{Query: q, Answer: "42", Context: []string{"https://example.com/a"}}, nil
}

func newTestServer(t *testing.T, asker Asker) *httptest.Server {
	t.Helper()
	s, err := New(asker)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, &stubAsker{})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "RAG Q&A Bot is running. Use /ask to query." {
		t.Fatalf("unexpected message %q", body["message"])
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", health.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestAskSuccess(t *testing.T) {
	asker := &stubAsker{}
	srv := newTestServer(t, asker)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"What is it?","extra":true}`))
	if err != nil {
		t.Fatalf("POST /ask failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got rag.Response
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Query != "What is it?" || got.Answer != "42" || len(got.Context) != 1 {
		t.Fatalf("unexpected response %+v", got)
	}
	if asker.question != "What is it?" {
		t.Fatalf("asker received %q", asker.question)
	}
}

func TestAskRejectsInvalidBodies(t *testing.T) {
	srv := newTestServer(t, &stubAsker{})

	cases := map[string]string{
		"malformed":        `{"question":`,
		"missing question": `{"q":"hi"}`,
		"wrong type":       `{"question":42}`,
		"not an object":    `["question"]`,
		"empty":            ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(body))
			if err != nil {
				t.Fatalf("POST /ask failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var e ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if e.Error == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestAskRejectsOversizedBody(t *testing.T) {
	s, err := New(&stubAsker{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	body := `{"question":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAskPipelineErrorReturnsDetail(t *testing.T) {
	srv := newTestServer(t, &stubAsker{err: errors.New("index exploded")})

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"x"}`))
	if err != nil {
		t.Fatalf("POST /ask failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var d DetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Detail != "index exploded" {
		t.Fatalf("unexpected detail %q", d.Detail)
	}
}

func TestAskMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubAsker{})
	resp, err := http.Get(srv.URL + "/ask")
	if err != nil {
		t.Fatalf("GET /ask failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestAskEmptyIndexWithPipeline(t *testing.T) {
	p := rag.New(vectorindex.New(vectorindex.Paths{}), embedding.NewHashing(16), nil)
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":""}`))
	if err != nil {
		t.Fatalf("POST /ask failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got rag.Response
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Answer != rag.NoContextAnswer {
		t.Fatalf("unexpected answer %q", got.Answer)
	}
	if got.Context == nil {
		t.Fatalf("context should encode as an empty list")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, err := New(&stubAsker{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewRequiresAsker(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil asker")
	}
}
