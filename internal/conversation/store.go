package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claippy/claippy/internal/constants"
	"github.com/claippy/claippy/internal/logging"
)

// Store errors
var (
	ErrConversationExists   = errors.New("conversation already exists")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrNoWorktree           = errors.New("no .git directory found in any parent directory")
)

// EnvDataDir overrides the store root, bypassing the worktree search.
const EnvDataDir = "CLAIPPY_DATA_DIR"

// currentPointerFile names the file holding the active conversation id.
const currentPointerFile = "current"

// Store persists conversations as one JSON record per id under a root
// directory, plus a pointer file naming the active conversation.
//
// Writes are atomic (temp file + rename), so a record is never observed
// half-written. No locking across ids: only one process is expected to
// touch a given id at a time, and last-writer-wins within an id.
type Store struct {
	root string
}

// Open locates the store root and returns a Store. The root is
// CLAIPPY_DATA_DIR when set; otherwise the .claippy directory inside the
// nearest ancestor containing .git, created on demand.
func Open() (*Store, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return OpenAt(dir)
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return OpenAt(filepath.Join(dir, constants.StoreDirName))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNoWorktree
		}
		dir = parent
	}
}

// OpenAt returns a Store rooted at the given directory, creating it if
// needed.
func OpenAt(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's backing directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

// Exists reports whether a conversation with the given id is persisted.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.recordPath(id))
	return err == nil
}

// Create persists a new empty conversation and makes it active. It fails
// with ErrConversationExists when the id collides with a persisted record,
// leaving the existing record untouched.
func (s *Store) Create(id string) (*Conversation, error) {
	if s.Exists(id) {
		return nil, fmt.Errorf("%w: %s", ErrConversationExists, id)
	}
	conv := New(id)
	if err := s.Save(conv); err != nil {
		return nil, err
	}
	if err := s.SetCurrent(id); err != nil {
		return nil, err
	}
	logging.Debug("created conversation", logging.Fields{"id": id})
	return conv, nil
}

// Load reads a conversation record by id.
func (s *Store) Load(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoActiveConversation, id)
		}
		return nil, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversation %s: %w", id, err)
	}
	return &conv, nil
}

// LoadCurrent reads the active conversation named by the pointer file. It
// fails with ErrNoActiveConversation when no pointer exists.
func (s *Store) LoadCurrent() (*Conversation, error) {
	id, err := s.CurrentID()
	if err != nil {
		return nil, err
	}
	return s.Load(id)
}

// CurrentID returns the active conversation id from the pointer file.
func (s *Store) CurrentID() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, currentPointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoActiveConversation
		}
		return "", fmt.Errorf("failed to read active conversation pointer: %w", err)
	}
	id := string(data)
	if id == "" {
		return "", ErrNoActiveConversation
	}
	return id, nil
}

// SetCurrent marks the given conversation id as active.
func (s *Store) SetCurrent(id string) error {
	return s.writeAtomic(filepath.Join(s.root, currentPointerFile), []byte(id))
}

// Save writes the conversation record atomically, bumping UpdatedAt.
func (s *Store) Save(conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", conv.ID, err)
	}
	if err := s.writeAtomic(s.recordPath(conv.ID), data); err != nil {
		return err
	}
	logging.Debug("persisted conversation", logging.Fields{
		"id":       conv.ID,
		"messages": len(conv.Messages),
		"context":  len(conv.Context),
	})
	return nil
}

// Clear empties the conversation's messages and persists immediately. The
// context set is unaffected.
func (s *Store) Clear(conv *Conversation) error {
	conv.ClearMessages()
	return s.Save(conv)
}

// AppendExchange appends a user/assistant message pair and persists once.
// Either both messages land in the record or, on persistence failure, the
// in-memory conversation is rolled back so nothing is kept.
func (s *Store) AppendExchange(conv *Conversation, userContent, assistantContent string) error {
	n := len(conv.Messages)
	conv.Append(RoleUser, userContent)
	conv.Append(RoleAssistant, assistantContent)
	if err := s.Save(conv); err != nil {
		conv.Messages = conv.Messages[:n]
		return err
	}
	return nil
}

// writeAtomic writes data via a temp file in the same directory and renames
// it over the target, so readers never see a partial record.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}
