package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind records which report action produced an archive entry.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindPreview  Kind = "preview"
	KindShare    Kind = "share"
	KindDownload Kind = "download"
)

// Record is an archived report request.
type Record struct {
	ID            uuid.UUID `json:"id"`
	BabyID        string    `json:"baby_id"`
	Kind          Kind      `json:"kind"`
	FileName      *string   `json:"file_name,omitempty"`
	AgeGroups     []string  `json:"age_groups"`
	Statuses      []string  `json:"statuses"`
	Vaccinated    int       `json:"vaccinated"`
	NotVaccinated int       `json:"not_vaccinated"`
	Skipped       int       `json:"skipped"`
	RequestedBy   *string   `json:"requested_by,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ArchiveRepository defines the storage operations for archived report
// requests.
type ArchiveRepository interface {
	Create(ctx context.Context, r *Record) error
	ListByBaby(ctx context.Context, babyID string, limit, offset int) ([]*Record, int, error)
}

// memoryArchive keeps records in process. Used when no database is
// configured.
type memoryArchive struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryArchive creates an in-process archive.
func NewMemoryArchive() ArchiveRepository {
	return &memoryArchive{}
}

func (m *memoryArchive) Create(_ context.Context, r *Record) error {
	r.ID = uuid.New()
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	cp := *r
	m.mu.Lock()
	m.records = append(m.records, &cp)
	m.mu.Unlock()
	return nil
}

func (m *memoryArchive) ListByBaby(ctx context.Context, babyID string, limit, offset int) ([]*Record, int, error) {
	match := func(r *Record) bool { return r.BabyID == babyID }
	return m.list(match, limit, offset), m.count(match), nil
}

func (m *memoryArchive) count(match func(*Record) bool) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		if match(r) {
			n++
		}
	}
	return n
}

// list returns matching records newest first.
func (m *memoryArchive) list(match func(*Record) bool, limit, offset int) []*Record {
	m.mu.RLock()
	var items []*Record
	for _, r := range m.records {
		if match(r) {
			cp := *r
			items = append(items, &cp)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].GeneratedAt.After(items[j].GeneratedAt)
	})
	if offset >= len(items) {
		return []*Record{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
