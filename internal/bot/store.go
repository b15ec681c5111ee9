package bot

import (
	"context"
	"strconv"
	"sync"

	"doctorai/internal/db"
	"doctorai/pkg"
)

// historyWindow is how many prior turns a chat retains for the pipeline.
const historyWindow = 8

// Store holds per-chat state for the bot: the selected agent and a rolling
// conversation history.
type Store interface {
	Agent(ctx context.Context, chatID int64) (string, error)
	SetAgent(ctx context.Context, chatID int64, agent string) error
	History(ctx context.Context, chatID int64, limit int) ([]pkg.HistoryEntry, error)
	Append(ctx context.Context, chatID int64, entries ...pkg.HistoryEntry) error
}

type memorySession struct {
	agent   string
	history []pkg.HistoryEntry
}

// MemoryStore keeps chat state in process memory. It is the fallback when no
// database is configured; state is lost on restart.
type MemoryStore struct {
	mu           sync.Mutex
	defaultAgent string
	sessions     map[int64]*memorySession
}

// NewMemoryStore constructs an in-memory store seeded with the default agent.
func NewMemoryStore(defaultAgent string) *MemoryStore {
	return &MemoryStore{defaultAgent: defaultAgent, sessions: make(map[int64]*memorySession)}
}

func (s *MemoryStore) session(chatID int64) *memorySession {
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &memorySession{agent: s.defaultAgent}
		s.sessions[chatID] = sess
	}
	return sess
}

func (s *MemoryStore) Agent(_ context.Context, chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(chatID).agent, nil
}

func (s *MemoryStore) SetAgent(_ context.Context, chatID int64, agent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(chatID).agent = agent
	return nil
}

func (s *MemoryStore) History(_ context.Context, chatID int64, limit int) ([]pkg.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.session(chatID).history
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]pkg.HistoryEntry, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, chatID int64, entries ...pkg.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(chatID)
	sess.history = append(sess.history, entries...)
	if len(sess.history) > historyWindow {
		sess.history = sess.history[len(sess.history)-historyWindow:]
	}
	return nil
}

// DBStore persists chat state in Postgres via the shared repository, so bot
// conversations survive restarts.
type DBStore struct {
	repo         *db.Repository
	defaultAgent string
}

// NewDBStore constructs a database-backed store.
func NewDBStore(repo *db.Repository, defaultAgent string) *DBStore {
	return &DBStore{repo: repo, defaultAgent: defaultAgent}
}

const platform = "telegram"

func chatKey(chatID int64) string { return strconv.FormatInt(chatID, 10) }

func (s *DBStore) Agent(ctx context.Context, chatID int64) (string, error) {
	sess, err := s.repo.EnsureSession(ctx, platform, chatKey(chatID), s.defaultAgent)
	if err != nil {
		return "", err
	}
	return sess.Agent, nil
}

func (s *DBStore) SetAgent(ctx context.Context, chatID int64, agent string) error {
	sess, err := s.repo.EnsureSession(ctx, platform, chatKey(chatID), s.defaultAgent)
	if err != nil {
		return err
	}
	return s.repo.SetSessionAgent(ctx, sess.ID, agent)
}

func (s *DBStore) History(ctx context.Context, chatID int64, limit int) ([]pkg.HistoryEntry, error) {
	sess, err := s.repo.EnsureSession(ctx, platform, chatKey(chatID), s.defaultAgent)
	if err != nil {
		return nil, err
	}
	return s.repo.RecentMessages(ctx, sess.ID, limit)
}

func (s *DBStore) Append(ctx context.Context, chatID int64, entries ...pkg.HistoryEntry) error {
	sess, err := s.repo.EnsureSession(ctx, platform, chatKey(chatID), s.defaultAgent)
	if err != nil {
		return err
	}
	return s.repo.AppendMessages(ctx, sess.ID, entries...)
}
