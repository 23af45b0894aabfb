package catalog

import (
	"context"
	"sync"

	"ChunkVault/internal/errs"
	"ChunkVault/model"
)

// Memory is an in-process Catalog.
type Memory struct {
	mu      sync.RWMutex
	records map[string]model.ObjectRecord
}

// NewMemory returns an empty in-process catalog.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]model.ObjectRecord)}
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Put(ctx context.Context, record *model.ObjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.Name]; ok {
		return errs.DuplicateName("put", record.Name)
	}
	stored := *record
	stored.Metadata = record.Metadata.Clone()
	m.records[record.Name] = stored
	return nil
}

func (m *Memory) GetByName(ctx context.Context, name string) (*model.ObjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[name]
	if !ok {
		return nil, errs.NotFound("get by name", name)
	}
	record.Metadata = record.Metadata.Clone()
	return &record, nil
}

func (m *Memory) ListAll(ctx context.Context) ([]model.ObjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]model.ObjectRecord, 0, len(m.records))
	for _, record := range m.records {
		record.Metadata = record.Metadata.Clone()
		out = append(out, record)
	}
	m.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, name string) (*model.ObjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return nil, errs.NotFound("delete", name)
	}
	delete(m.records, name)
	return &record, nil
}
