package retraining

import (
	"sync"

	"gorm.io/gorm"

	"github.com/velora-tech/fraudsight/pkg/errors"
)

// History is the append-only store of retraining records, ordered by
// occurrence. Implementations must retain insertion order.
type History interface {
	Append(record *Record) error
	All() ([]Record, error)
	Last() (*Record, error)
	Count() (int, error)
}

// MemoryHistory keeps records in process memory. It is the default store
// when no database is configured; the cooldown then only spans the process
// lifetime.
type MemoryHistory struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryHistory returns an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

// Append implements History.
func (h *MemoryHistory) Append(record *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	record.ID = uint(len(h.records) + 1)
	h.records = append(h.records, *record)
	return nil
}

// All implements History.
func (h *MemoryHistory) All() ([]Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records...), nil
}

// Last implements History.
func (h *MemoryHistory) Last() (*Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return nil, nil
	}
	last := h.records[len(h.records)-1]
	return &last, nil
}

// Count implements History.
func (h *MemoryHistory) Count() (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records), nil
}

// GormHistory persists records through the database, so the cooldown
// survives process restarts.
type GormHistory struct {
	db *gorm.DB
}

// NewGormHistory builds a History on top of an opened database handle.
func NewGormHistory(db *gorm.DB) *GormHistory {
	return &GormHistory{db: db}
}

// Append implements History.
func (h *GormHistory) Append(record *Record) error {
	if err := h.db.Create(record).Error; err != nil {
		return errors.NewWithKind(errors.KindStorage, "append retraining record").Wrap(err)
	}
	return nil
}

// All implements History.
func (h *GormHistory) All() ([]Record, error) {
	var records []Record
	if err := h.db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "list retraining records").Wrap(err)
	}
	return records, nil
}

// Last implements History.
func (h *GormHistory) Last() (*Record, error) {
	var record Record
	err := h.db.Order("id DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.NewWithKind(errors.KindStorage, "load last retraining record").Wrap(err)
	}
	return &record, nil
}

// Count implements History.
func (h *GormHistory) Count() (int, error) {
	var count int64
	if err := h.db.Model(&Record{}).Count(&count).Error; err != nil {
		return 0, errors.NewWithKind(errors.KindStorage, "count retraining records").Wrap(err)
	}
	return int(count), nil
}
