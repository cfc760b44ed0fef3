package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claippy/claippy/internal/api"
	"github.com/claippy/claippy/internal/config"
	"github.com/claippy/claippy/internal/conversation"
)

// mockExecutor implements api.QueryExecutor for testing
type mockExecutor struct {
	response string
	chunks   []string
	err      error
	lastReq  api.Request
	calls    int
}

func (m *mockExecutor) Generate(ctx context.Context, req api.Request, onChunk func(string)) (string, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	for _, chunk := range m.chunks {
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return m.response, nil
}

func (m *mockExecutor) Close() {}

var _ api.QueryExecutor = (*mockExecutor)(nil)

// newTestApp builds an App against a temp store and a mock executor.
func newTestApp(t *testing.T) (*App, *mockExecutor, *bytes.Buffer) {
	t.Helper()
	store, err := conversation.OpenAt(filepath.Join(t.TempDir(), ".claippy"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	mock := &mockExecutor{response: "hello"}
	out := &bytes.Buffer{}
	app := &App{
		cfg: &config.Config{
			Model:        "test-model",
			SystemPrompt: "test prompt",
		},
		store:    store,
		executor: mock,
		out:      out,
	}
	return app, mock, out
}

// writeTestFile creates a file for context-add tests.
func writeTestFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupCanonicalAndAliases(t *testing.T) {
	cases := []struct {
		token string
		want  string
	}{
		{"query", "query"},
		{"q", "query"},
		{"new", "new"},
		{"n", "new"},
		{"add", "add"},
		{"a", "add"},
		{"remove", "remove"},
		{"rm", "remove"},
		{"ls", "ls"},
		{"clear", "clear"},
		{"history", "history"},
		{"repl", "repl"},
	}
	for _, c := range cases {
		spec, ok := lookupCommand(c.token)
		if !ok {
			t.Errorf("lookupCommand(%q) not found", c.token)
			continue
		}
		if spec.Name != c.want {
			t.Errorf("lookupCommand(%q) = %q, want %q", c.token, spec.Name, c.want)
		}
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	for _, token := range []string{"Query", "NEW", "Ls"} {
		if _, ok := lookupCommand(token); ok {
			t.Errorf("lookupCommand(%q) resolved, want case-sensitive miss", token)
		}
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	app, _, _ := newTestApp(t)
	err := app.Dispatch("bogus", nil)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Dispatch(bogus) = %v, want ErrUnknownCommand", err)
	}
}

func TestUnknownCommandMutatesNothing(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	path := writeTestFile(t, "a.go")
	if err := app.Dispatch("add", []string{path}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"hi"}); err != nil {
		t.Fatal(err)
	}

	before, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Dispatch("frobnicate", []string{"x"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("messages changed: %d -> %d", len(before.Messages), len(after.Messages))
	}
	if len(after.Context) != len(before.Context) {
		t.Errorf("context changed: %d -> %d", len(before.Context), len(after.Context))
	}
}

func TestDispatchValidatesArgsBeforeRunning(t *testing.T) {
	app, mock, _ := newTestApp(t)
	if err := app.Dispatch("query", nil); err == nil {
		t.Error("query without text should fail")
	}
	if mock.calls != 0 {
		t.Errorf("executor was called %d times during validation failure", mock.calls)
	}
}

func TestScenarioDuplicateAdd(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	path := writeTestFile(t, "a.rs")
	if err := app.Dispatch("add", []string{path, path}); err != nil {
		t.Fatal(err)
	}

	conv, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Context) != 1 {
		t.Errorf("context size = %d, want exactly 1", len(conv.Context))
	}
}

func TestScenarioQueryThenHistory(t *testing.T) {
	app, mock, out := newTestApp(t)
	mock.response = "hello"

	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"hi"}); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := app.Dispatch("history", nil); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("history lines = %v", lines)
	}
	if lines[0] != "user: hi" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "assistant: hello" {
		t.Errorf("lines[1] = %q", lines[1])
	}
}

func TestScenarioCreateExistingFails(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"hi"}); err != nil {
		t.Fatal(err)
	}

	err := app.Dispatch("new", []string{"proj1"})
	if !errors.Is(err, conversation.ErrConversationExists) {
		t.Fatalf("Dispatch(new proj1) = %v, want ErrConversationExists", err)
	}

	conv, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("existing conversation touched: %d messages", len(conv.Messages))
	}
}

func TestScenarioRemoveMissing(t *testing.T) {
	app, _, out := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	path := writeTestFile(t, "kept.go")
	if err := app.Dispatch("add", []string{path}); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := app.Dispatch("remove", []string{"src/missing.rs"}); err != nil {
		t.Fatalf("remove of missing entry should succeed: %v", err)
	}
	if !strings.Contains(out.String(), "No matching") {
		t.Errorf("expected empty removal report, got %q", out.String())
	}

	conv, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Context) != 1 {
		t.Errorf("context size = %d, want 1", len(conv.Context))
	}
}

func TestAddReportsSkippedInvalid(t *testing.T) {
	app, _, out := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	good := writeTestFile(t, "good.go")
	bad := filepath.Join(t.TempDir(), "missing.go")

	if err := app.Dispatch("add", []string{bad, good}); err != nil {
		t.Fatalf("batch with one invalid ref should not fail: %v", err)
	}
	if !strings.Contains(out.String(), "Skipped invalid reference") {
		t.Errorf("skipped entry not reported: %q", out.String())
	}

	conv, _ := app.store.Load("proj1")
	if len(conv.Context) != 1 {
		t.Errorf("context size = %d, want 1", len(conv.Context))
	}
}

func TestClearKeepsContextViaDispatch(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	path := writeTestFile(t, "ctx.go")
	if err := app.Dispatch("add", []string{path}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"hi"}); err != nil {
		t.Fatal(err)
	}

	if err := app.Dispatch("clear", nil); err != nil {
		t.Fatal(err)
	}

	conv, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("messages = %d after clear", len(conv.Messages))
	}
	if len(conv.Context) != 1 {
		t.Errorf("context = %d after clear, want 1", len(conv.Context))
	}
}

func TestClearWithoutConversationFails(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.Dispatch("clear", nil); !errors.Is(err, conversation.ErrNoActiveConversation) {
		t.Errorf("clear = %v, want ErrNoActiveConversation", err)
	}
}

func TestQueryAutoCreatesConversation(t *testing.T) {
	app, _, _ := newTestApp(t)

	if err := app.Dispatch("query", []string{"hi", "there"}); err != nil {
		t.Fatalf("query without active conversation should auto-create: %v", err)
	}

	conv, err := app.store.LoadCurrent()
	if err != nil {
		t.Fatalf("no conversation was created: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Content != "hi there" {
		t.Errorf("multi-word query not joined: %q", conv.Messages[0].Content)
	}
}

func TestQuerySendsHistoryAndSystemPrompt(t *testing.T) {
	app, mock, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"first"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("query", []string{"second"}); err != nil {
		t.Fatal(err)
	}

	if mock.lastReq.System != "test prompt" {
		t.Errorf("system = %q", mock.lastReq.System)
	}
	msgs := mock.lastReq.Messages
	if len(msgs) != 3 {
		t.Fatalf("payload messages = %d, want 3 (prior pair + new)", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "hello" || msgs[2].Content != "second" {
		t.Errorf("payload = %+v", msgs)
	}
}

func TestQueryExecutorFailurePersistsNothing(t *testing.T) {
	app, mock, _ := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	mock.err = errors.New("provider exploded")

	if err := app.Dispatch("query", []string{"hi"}); err == nil {
		t.Fatal("query should surface executor error")
	}

	conv, err := app.store.Load("proj1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("half-written exchange persisted: %d messages", len(conv.Messages))
	}
}

func TestQueryStreamsChunks(t *testing.T) {
	app, mock, out := newTestApp(t)
	app.cfg.Stream = true
	mock.chunks = []string{"hel", "lo"}
	mock.response = "hello"

	if err := app.Dispatch("query", []string{"hi"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("streamed output missing: %q", out.String())
	}
}

func TestLsOnEmptyContext(t *testing.T) {
	app, _, out := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Dispatch("ls", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Context is empty.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLsListsInInsertionOrder(t *testing.T) {
	app, _, out := newTestApp(t)
	if err := app.Dispatch("new", []string{"proj1"}); err != nil {
		t.Fatal(err)
	}
	b := writeTestFile(t, "b.go")
	a := writeTestFile(t, "a.go")
	if err := app.Dispatch("add", []string{b, a}); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := app.Dispatch("ls", nil); err != nil {
		t.Fatal(err)
	}
	output := out.String()
	if strings.Index(output, "b.go") > strings.Index(output, "a.go") {
		t.Errorf("insertion order not preserved: %q", output)
	}
}
