package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/claippy/claippy/internal/constants"
	"github.com/claippy/claippy/internal/logging"
	"github.com/claippy/claippy/internal/workspace"
)

// maxURLBody caps how much of a fetched URL is included in the prompt.
const maxURLBody = 256 * 1024

// fetchClient is used for URL context entries. Overridable in tests.
var fetchClient = &http.Client{Timeout: constants.DefaultFetchTimeout}

// BuildContextBlock renders the context set into a block of background
// material for the system prompt. File entries are read from disk and URL
// entries fetched; entries that cannot be loaded are skipped with a warning
// rather than failing the query.
func BuildContextBlock(set workspace.Set) string {
	if len(set) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Background material supplied by the user:\n")
	for _, entry := range set {
		content, err := loadEntry(entry)
		if err != nil {
			logging.Warn("skipping context entry", logging.Fields{
				"ref":   entry.Ref,
				"kind":  string(entry.Kind),
				"cause": err.Error(),
			})
			continue
		}
		fmt.Fprintf(&sb, "\n<context source=%q>\n%s\n</context>\n", entry.Ref, content)
	}
	return sb.String()
}

func loadEntry(entry workspace.Entry) (string, error) {
	switch entry.Kind {
	case workspace.KindURL:
		return fetchURL(entry.Ref)
	default:
		data, err := os.ReadFile(entry.Ref)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func fetchURL(url string) (string, error) {
	resp, err := fetchClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxURLBody))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BuildRequest assembles the executor payload from the system prompt, the
// context set, and the message history (which already ends in the new user
// message).
func BuildRequest(systemPrompt string, set workspace.Set, messages []Message) Request {
	system := systemPrompt
	if block := BuildContextBlock(set); block != "" {
		system = system + "\n\n" + block
	}
	return Request{System: system, Messages: messages}
}
