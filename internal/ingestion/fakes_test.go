package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mfenderov/docsync/internal/chunker"
	"github.com/mfenderov/docsync/pkg/models"
)

// fakeIndex records uploads and deletes.
type fakeIndex struct {
	mu        sync.Mutex
	records   []models.IndexedRecord
	deletes   [][]string
	reject    map[string]bool // chunk texts the index refuses
	uploadErr error
	deleteOK  bool
	deleteErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{reject: map[string]bool{}, deleteOK: true}
}

func (f *fakeIndex) Upload(_ context.Context, records ...models.IndexedRecord) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	var ids []string
	for _, r := range records {
		f.records = append(f.records, r)
		if !f.reject[r.Text] {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (f *fakeIndex) Delete(_ context.Context, keys []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, keys)
	return f.deleteOK, f.deleteErr
}

func (f *fakeIndex) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeEmbedder fails for texts containing "poison".
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "poison") {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, text string, _ int) string {
	first, _, _ := strings.Cut(text, "|")
	return "summary: " + first
}

// pipeChunker splits on "|" so chunk texts are predictable.
type pipeChunker struct{}

func (pipeChunker) Split(in chunker.Input) []string {
	if in.Text == "" {
		return nil
	}
	return strings.Split(in.Text, "|")
}

// memStore is an in-memory manifest.Store.
type memStore struct {
	mu     sync.Mutex
	data   map[string]models.Manifest
	puts   int
	getErr error
	putErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]models.Manifest{}}
}

func (s *memStore) Get(_ context.Context, key string) (models.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	m, ok := s.data[key]
	if !ok {
		return models.Manifest{}, nil
	}
	return append(models.Manifest(nil), m...), nil
}

func (s *memStore) Put(_ context.Context, key string, m models.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.data[key] = append(models.Manifest(nil), m...)
	return nil
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

type staticSource struct {
	docs []models.SourceDocument
	err  error
}

func (s staticSource) List(context.Context) ([]models.SourceDocument, error) {
	return s.docs, s.err
}

type harness struct {
	full, summary *fakeIndex
	store         *memStore
	engine        *Engine
}

func newHarness(cfg Config) *harness {
	h := &harness{full: newFakeIndex(), summary: newFakeIndex(), store: newMemStore()}
	h.engine = New(Deps{
		FullIndex:    h.full,
		SummaryIndex: h.summary,
		Embedder:     fakeEmbedder{},
		Summarizer:   fakeSummarizer{},
		Chunker:      pipeChunker{},
		Manifests:    h.store,
	}, cfg)
	return h
}
