// Package conversation defines the conversation data model and its
// file-backed persistence.
//
// A conversation is a named, append-only sequence of messages plus a
// workspace context set. Each conversation is persisted as an independent
// JSON record keyed by its id, and a pointer file tracks which conversation
// is currently active in the working tree.
package conversation

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claippy/claippy/internal/workspace"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// artifactPattern extracts generated artifacts the model wraps in
// <Artifact></Artifact> tags.
var artifactPattern = regexp.MustCompile(`(?s)<Artifact>(.*?)</Artifact>`)

// Message is one entry in a conversation's history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Artifact  string    `json:"artifact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a message with a fresh id. Assistant messages get their
// artifact, if any, extracted and stored alongside the content.
func NewMessage(role Role, content string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if role == RoleAssistant {
		msg.Artifact = ExtractArtifact(content)
	}
	return msg
}

// ExtractArtifact returns the text of the first <Artifact> block in content,
// or "" when there is none.
func ExtractArtifact(content string) string {
	m := artifactPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// Conversation is a persisted message sequence plus its context set.
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []Message     `json:"messages"`
	Context   workspace.Set `json:"context"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New returns an empty conversation with the given id.
func New(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewID synthesizes a conversation id from an optional descriptor and the
// current time. The timestamp keeps ids unique enough for one record per
// invocation, and the format stays filesystem-safe (no colons).
func NewID(descriptor string) string {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return stamp
	}
	return descriptor + "-" + stamp
}

// Append adds a message to the history. It does not persist; callers decide
// when the record is written so multi-message updates stay atomic.
func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, NewMessage(role, content))
}

// ClearMessages empties the message sequence. The context set is untouched.
func (c *Conversation) ClearMessages() {
	c.Messages = nil
}
