package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore é um CrawlStore local em JSON, para rodar sem Postgres.
// O arquivo inteiro é reescrito a cada MarkBatch, o histórico de um crawler
// de nicho tem milhares de entradas, não milhões.
type FileStore struct {
	mu   sync.Mutex
	path string
	seen map[string]fileRecord
}

type fileRecord struct {
	Keyword   string    `json:"keyword"`
	Title     string    `json:"title"`
	CrawledAt time.Time `json:"crawled_at"`
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, seen: make(map[string]fileRecord)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("falha lendo histórico %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.seen); err != nil {
		return nil, fmt.Errorf("histórico %s corrompido: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) IsCrawled(ctx context.Context, noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[noteID]
	return ok, nil
}

func (s *FileStore) MarkBatch(ctx context.Context, records []CrawlRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if _, ok := s.seen[rec.NoteID]; ok {
			continue
		}
		s.seen[rec.NoteID] = fileRecord{
			Keyword:   rec.Keyword,
			Title:     rec.Title,
			CrawledAt: rec.CrawledAt,
		}
	}
	return s.flush()
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen), nil
}

func (s *FileStore) flush() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("falha criando pasta do histórico: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.seen, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("falha gravando histórico: %w", err)
	}
	return nil
}
