package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"regime-signal-bot/internal/fsutil"
	"regime-signal-bot/internal/types"
)

// Store persists sentiment entries between cycles. Get returns ok=false
// when no entry exists for the symbol.
type Store interface {
	Get(ctx context.Context, symbol string) (types.SentimentEntry, bool, error)
	Put(ctx context.Context, entry types.SentimentEntry) error
}

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]types.SentimentEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]types.SentimentEntry)}
}

func (m *MemoryStore) Get(_ context.Context, symbol string) (types.SentimentEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[symbol]
	return e, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, entry types.SentimentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[entry.Symbol] = entry
	return nil
}

// FileStore keeps every entry in one JSON document keyed by symbol. Each Put
// is a read-modify-write of the whole document under one mutex, finished
// with an atomic rename so readers never see a partial file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get(_ context.Context, symbol string) (types.SentimentEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return types.SentimentEntry{}, false, err
	}
	e, ok := doc[symbol]
	return e, ok, nil
}

func (f *FileStore) Put(_ context.Context, entry types.SentimentEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		// A corrupt document is replaced rather than blocking every write.
		doc = make(map[string]types.SentimentEntry)
	}
	doc[entry.Symbol] = entry
	return f.save(doc)
}

func (f *FileStore) load() (map[string]types.SentimentEntry, error) {
	doc := make(map[string]types.SentimentEntry)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sentiment file: %w", err)
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode sentiment file: %w", err)
	}
	return doc, nil
}

func (f *FileStore) save(doc map[string]types.SentimentEntry) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(f.path, b)
}
