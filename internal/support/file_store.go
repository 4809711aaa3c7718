package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	// CurrentVersion is the on-disk schema version of the conversations file.
	CurrentVersion = 1

	defaultDebounce = 500 * time.Millisecond
)

type fileState struct {
	Version       int            `json:"version"`
	Conversations []Conversation `json:"conversations"`
}

// FileStore is an offline Client backed by a JSON file. Writes are
// coalesced and flushed after a short debounce, or by Close.
type FileStore struct {
	path     string
	lockPath string
	agent    string

	mu       sync.Mutex
	state    fileState
	dirty    bool
	timer    *time.Timer
	debounce time.Duration
	now      func() time.Time
}

// NewFileStore creates a store at path. Replies are authored as agent.
func NewFileStore(path, agent string) *FileStore {
	path = strings.TrimSpace(path)
	if agent == "" {
		agent = "agent"
	}
	return &FileStore{
		path:     path,
		lockPath: path + ".lock",
		agent:    agent,
		state:    fileState{Version: CurrentVersion},
		debounce: defaultDebounce,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Load reads the file. A missing file is an empty store.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	var out fileState
	err := withFileLock(s.lockPath, func() error {
		payload, err := os.ReadFile(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			return nil
		}
		return json.Unmarshal(payload, &out)
	})
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	s.state = out
	s.dirty = false
	return nil
}

// Seed replaces the stored conversations and saves soon.
func (s *FileStore) Seed(convs []Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Conversations = cloneConversations(convs)
	s.markDirtyLocked()
}

// List implements Client. Open conversations come first, then by most
// recent activity.
func (s *FileStore) List(ctx context.Context) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := cloneConversations(s.state.Conversations)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Status == StatusResolved, out[j].Status == StatusResolved
		if ri != rj {
			return !ri
		}
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

func lastActivity(c Conversation) time.Time {
	if len(c.Messages) == 0 {
		return time.Time{}
	}
	return c.Messages[len(c.Messages)-1].CreatedAt
}

// Get implements Client.
func (s *FileStore) Get(ctx context.Context, id string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Conversation{}, ErrConversationNotFound
	}
	return cloneConversations(s.state.Conversations[idx : idx+1])[0], nil
}

// SendReply implements Client.
func (s *FileStore) SendReply(ctx context.Context, id, body string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(body) == "" {
		return Message{}, errors.New("reply body is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Message{}, ErrConversationNotFound
	}
	msg := Message{
		ID:        uuid.New().String(),
		Author:    s.agent,
		FromAgent: true,
		Body:      body,
		CreatedAt: s.now(),
	}
	conv := &s.state.Conversations[idx]
	conv.Messages = append(conv.Messages, msg)
	if conv.Status == StatusOpen || conv.Status == "" {
		conv.Status = StatusPending
	}
	s.markDirtyLocked()
	return msg, nil
}

// SetStatus implements Client.
func (s *FileStore) SetStatus(ctx context.Context, id, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrConversationNotFound
	}
	s.state.Conversations[idx].Status = status
	s.markDirtyLocked()
	return nil
}

func (s *FileStore) indexLocked(id string) int {
	for i, c := range s.state.Conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Close stops the pending save timer and flushes unsaved changes.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	needsSave := s.dirty
	s.mu.Unlock()
	if !needsSave {
		return nil
	}
	return s.SaveNow()
}

// SaveNow writes the file immediately.
func (s *FileStore) SaveNow() error {
	s.mu.Lock()
	if s.path == "" {
		s.mu.Unlock()
		return nil
	}
	state := fileState{Version: CurrentVersion, Conversations: cloneConversations(s.state.Conversations)}
	s.dirty = false
	s.mu.Unlock()

	if err := withFileLock(s.lockPath, func() error {
		return writeAtomicJSON(s.path, state)
	}); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *FileStore) markDirtyLocked() {
	s.dirty = true
	if s.path == "" {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, func() {
			_ = s.SaveNow()
		})
		return
	}
	_ = s.timer.Reset(s.debounce)
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state fileState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneConversations(in []Conversation) []Conversation {
	if in == nil {
		return nil
	}
	out := make([]Conversation, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Messages = append([]Message(nil), c.Messages...)
	}
	return out
}
