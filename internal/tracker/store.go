package tracker

import (
	"context"
	"sort"
	"sync"
)

// Store はSessionStateの保存先。
type Store interface {
	// Get はキーの状態を返す。存在しない場合はゼロ値とfalse。
	Get(ctx context.Context, key Key) (SessionState, bool, error)
	Put(ctx context.Context, key Key, state SessionState) error
	// List は保存済みの全状態をキー順で返す。
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Entry はList結果の1件。
type Entry struct {
	Key   Key
	State SessionState
}

// MemoryStore はプロセス内メモリのみに状態を保持する。再起動で失われる。
type MemoryStore struct {
	mu     sync.RWMutex
	states map[Key]SessionState
}

// NewMemoryStore はMemoryStoreを作成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[Key]SessionState)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (SessionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[key]
	return st, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key Key, state SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key] = state
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.states))
	for k, st := range s.states {
		entries = append(entries, Entry{Key: k, State: st})
	}
	s.mu.RUnlock()

	sortEntries(entries)
	return entries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
}
