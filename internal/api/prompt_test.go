package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claippy/claippy/internal/workspace"
)

func TestBuildContextBlockEmpty(t *testing.T) {
	if got := BuildContextBlock(nil); got != "" {
		t.Errorf("empty set produced %q", got)
	}
}

func TestBuildContextBlockReadsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("remember the milk"), 0644); err != nil {
		t.Fatal(err)
	}

	var set workspace.Set
	set.Add([]string{path})

	block := BuildContextBlock(set)
	if !strings.Contains(block, "remember the milk") {
		t.Errorf("file content missing from block: %q", block)
	}
	if !strings.Contains(block, path) {
		t.Errorf("source attribution missing: %q", block)
	}
}

func TestBuildContextBlockFetchesURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "remote doc body")
	}))
	defer server.Close()

	set := workspace.Set{{Kind: workspace.KindURL, Ref: server.URL + "/doc"}}
	block := BuildContextBlock(set)
	if !strings.Contains(block, "remote doc body") {
		t.Errorf("URL content missing from block: %q", block)
	}
}

func TestBuildContextBlockSkipsUnreadableEntries(t *testing.T) {
	good := filepath.Join(t.TempDir(), "good.txt")
	if err := os.WriteFile(good, []byte("still here"), 0644); err != nil {
		t.Fatal(err)
	}

	set := workspace.Set{
		{Kind: workspace.KindFile, Ref: filepath.Join(t.TempDir(), "vanished.txt")},
		{Kind: workspace.KindFile, Ref: good},
	}
	block := BuildContextBlock(set)
	if !strings.Contains(block, "still here") {
		t.Errorf("readable entry dropped: %q", block)
	}
	if strings.Contains(block, "vanished.txt") {
		t.Errorf("unreadable entry included: %q", block)
	}
}

func TestBuildRequestAppendsContextToSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.txt")
	if err := os.WriteFile(path, []byte("ctx body"), 0644); err != nil {
		t.Fatal(err)
	}
	var set workspace.Set
	set.Add([]string{path})

	req := BuildRequest("base prompt", set, []Message{{Role: "user", Content: "hi"}})
	if !strings.HasPrefix(req.System, "base prompt") {
		t.Errorf("system = %q", req.System)
	}
	if !strings.Contains(req.System, "ctx body") {
		t.Errorf("context not folded into system prompt: %q", req.System)
	}
	if len(req.Messages) != 1 {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestBuildRequestWithoutContext(t *testing.T) {
	req := BuildRequest("base prompt", nil, nil)
	if req.System != "base prompt" {
		t.Errorf("system = %q, want unchanged base prompt", req.System)
	}
}
