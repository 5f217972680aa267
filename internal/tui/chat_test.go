// internal/tui/chat_test.go
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/ragqa/internal/rag"
)

type stubAsker struct {
	resp rag.Response
	err  error
	seen []string
}

func (s *stubAsker) Ask(_ context.Context, q string) (rag.Response, error) {
	s.seen = append(s.seen, q)
	if s.err != nil {
		return rag.Response{}, s.err
	}
	resp := s.resp
	resp.Query = q
	return resp, nil
}

// TestAskRoundTrip drives a full question through Update: enter starts a
// request, the answer message ends it, and the transcript shows the result.
func TestAskRoundTrip(t *testing.T) {
	asker := &stubAsker{resp: rag.Response{Answer: "Thirty days.", Context: []string{"https://example.com/returns"}}}
	m := initialModel(context.Background(), asker, "data/index.vec")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(*model)
	if m.width != 100 || m.height != 30 {
		t.Fatalf("expected size 100x30, got %dx%d", m.width, m.height)
	}

	m.textArea.SetValue("  What is the refund window?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)
	if !m.isLoading || m.pending != "What is the refund window?" {
		t.Fatalf("expected pending question; loading=%v pending=%q", m.isLoading, m.pending)
	}
	if cmd == nil {
		t.Fatalf("expected a command to run the request")
	}
	if m.textArea.Value() != "" {
		t.Fatalf("expected input to be cleared")
	}

	msg := askCmd(context.Background(), asker, m.pending)()
	next, _ = m.Update(msg)
	m = next.(*model)
	if m.isLoading {
		t.Fatalf("expected loading to finish")
	}
	if len(m.history) != 1 || m.history[0].answer != "Thirty days." {
		t.Fatalf("unexpected history %+v", m.history)
	}

	transcript := m.transcript()
	for _, want := range []string{"You: What is the refund window?", "Bot: Thirty days.", "Sources: https://example.com/returns"} {
		if !strings.Contains(transcript, want) {
			t.Fatalf("transcript missing %q:\n%s", want, transcript)
		}
	}
	if !strings.Contains(m.View(), "RAG Q&A Bot") {
		t.Fatalf("view missing title")
	}
}

func TestEnterIgnoredWhenBlankOrBusy(t *testing.T) {
	asker := &stubAsker{}
	m := initialModel(context.Background(), asker, "")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)
	if m.isLoading || cmd != nil {
		t.Fatalf("blank input should not start a request")
	}

	m.isLoading = true
	m.textArea.SetValue("second question")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(*model)
	if cmd != nil || m.textArea.Value() != "second question" {
		t.Fatalf("enter while busy should be ignored")
	}
}

func TestAskErrorIsShown(t *testing.T) {
	asker := &stubAsker{err: errors.New("embedder offline")}
	m := initialModel(context.Background(), asker, "")
	m.pending = "anything"
	m.isLoading = true

	next, _ := m.Update(askCmd(context.Background(), asker, "anything")())
	m = next.(*model)
	if !strings.Contains(m.transcript(), "Error: embedder offline") {
		t.Fatalf("expected error in transcript:\n%s", m.transcript())
	}
}

func TestQuitKeys(t *testing.T) {
	m := initialModel(context.Background(), &stubAsker{}, "")
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("expected quit command for %v", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg for %v", key)
		}
	}
}
