package service

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/sfohq/sop-assistant/internal/domain"
	"github.com/sfohq/sop-assistant/internal/port"
)

const fakeDim = 512

// fakeProvider is a deterministic port.AIProvider for tests: embeddings are
// bag-of-words vectors hashed into a fixed dimension, so overlapping wording
// yields overlapping vectors. Generation returns a canned JSON payload.
type fakeProvider struct {
	mu            sync.Mutex
	embedCalls    [][]string
	embedFailures []error // consumed one per EmbedBatch call, nil entries succeed
	generated     string
	generateErr   error
	generateCalls int
}

func (f *fakeProvider) ModelName() string { return "fake-chat-model" }

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls = append(f.embedCalls, append([]string(nil), texts...))
	if len(f.embedFailures) > 0 {
		err := f.embedFailures[0]
		f.embedFailures = f.embedFailures[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (f *fakeProvider) Generate(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if f.generated != "" {
		return f.generated, nil
	}
	payload, _ := json.Marshal(domain.StructuredAnswer{
		Answer:     "Use the SFO card.",
		NextSteps:  []string{"Pay with the SFO card"},
		RiskFlags:  []string{},
		UsedChunks: []domain.UsedChunk{{Source: "SFO EXPENSES SOP", Chunk: 0}},
	})
	return string(payload), nil
}

func (f *fakeProvider) calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

// bagOfWords counts word occurrences into hashed buckets. Unnormalized; the
// embedder under test is responsible for normalization.
func bagOfWords(text string) []float32 {
	v := make([]float32, fakeDim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%fakeDim]++
	}
	return v
}

// memStore keeps the last published snapshot in memory.
type memStore struct {
	mu   sync.Mutex
	snap *port.Snapshot
}

func (m *memStore) Save(_ context.Context, snap *port.Snapshot) (port.SnapshotLocations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	return port.SnapshotLocations{Index: "mem://index", Metadata: "mem://meta"}, nil
}

func (m *memStore) Load(_ context.Context) (*port.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, port.ErrNotIngested
	}
	return m.snap, nil
}

// fakeSink records created tasks and comments.
type fakeSink struct {
	mu       sync.Mutex
	tasks    []string
	comments []string
}

func (s *fakeSink) CreateTask(_ context.Context, title, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, title+"\n"+description)
	return "task-1", nil
}

func (s *fakeSink) AddComment(_ context.Context, taskID, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, content)
	return "comment-1", nil
}
