// Package registry manages the persisted list of configured printers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/store"
	"github.com/printdeck/printdeck/pkg/models"
)

// ErrNotFound is returned when no printer has the requested id.
var ErrNotFound = errors.New("printer not found")

// Patch carries the mutable fields of a printer update. Nil fields are
// left unchanged.
type Patch struct {
	Name           *string                `json:"name,omitempty"`
	ConnectionType *models.ConnectionType `json:"connection_type,omitempty"`
	Role           *models.PrinterRole    `json:"role,omitempty"`
	IPAddress      *string                `json:"ip_address,omitempty"`
	Port           *int                   `json:"port,omitempty"`
	PrinterType    *models.PrinterType    `json:"printer_type,omitempty"`
	PaperWidth     *int                   `json:"paper_width,omitempty"`
	Enabled        *bool                  `json:"enabled,omitempty"`
}

// Service holds the printer list in memory and persists the whole
// collection on every change. The in-memory list changes only after the
// durable write succeeds, so a failed persist never leaves torn state.
type Service struct {
	mu       sync.RWMutex
	printers []models.Printer
	bucket   *store.Bucket
	logger   *zap.Logger
}

// NewService loads the persisted printer list. Missing or corrupt
// stored data starts the registry empty.
func NewService(ctx context.Context, bucket *store.Bucket, logger *zap.Logger) (*Service, error) {
	s := &Service{bucket: bucket, logger: logger}
	if _, err := bucket.Load(ctx, &s.printers); err != nil {
		return nil, err
	}
	return s, nil
}

// Add validates the printer, assigns a fresh id, persists, then applies.
func (s *Service) Add(ctx context.Context, p models.Printer) (models.Printer, error) {
	p.ID = uuid.New().String()
	if err := p.Validate(); err != nil {
		return models.Printer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Printer, len(s.printers), len(s.printers)+1)
	copy(next, s.printers)
	next = append(next, p)

	if err := s.bucket.Save(ctx, next); err != nil {
		return models.Printer{}, fmt.Errorf("persist printer list: %w", err)
	}
	s.printers = next

	s.logger.Info("printer added",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.String("role", string(p.Role)),
	)
	return p, nil
}

// Update merges the patch into the printer with the given id.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (models.Printer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Printer{}, ErrNotFound
	}

	merged := s.printers[idx]
	applyPatch(&merged, patch)
	if err := merged.Validate(); err != nil {
		return models.Printer{}, err
	}

	next := make([]models.Printer, len(s.printers))
	copy(next, s.printers)
	next[idx] = merged

	if err := s.bucket.Save(ctx, next); err != nil {
		return models.Printer{}, fmt.Errorf("persist printer list: %w", err)
	}
	s.printers = next
	return merged, nil
}

// Delete removes the printer with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}

	next := make([]models.Printer, 0, len(s.printers)-1)
	next = append(next, s.printers[:idx]...)
	next = append(next, s.printers[idx+1:]...)

	if err := s.bucket.Save(ctx, next); err != nil {
		return fmt.Errorf("persist printer list: %w", err)
	}
	s.printers = next
	return nil
}

// Toggle flips a printer's enabled flag.
func (s *Service) Toggle(ctx context.Context, id string) (models.Printer, error) {
	s.mu.RLock()
	idx := s.indexOf(id)
	var enabled bool
	if idx >= 0 {
		enabled = s.printers[idx].Enabled
	}
	s.mu.RUnlock()

	if idx < 0 {
		return models.Printer{}, ErrNotFound
	}
	flipped := !enabled
	return s.Update(ctx, id, Patch{Enabled: &flipped})
}

// Get returns the printer with the given id.
func (s *Service) Get(id string) (models.Printer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.printers[idx], nil
	}
	return models.Printer{}, ErrNotFound
}

// List returns a copy of all configured printers.
func (s *Service) List() []models.Printer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Printer, len(s.printers))
	copy(out, s.printers)
	return out
}

// ListForRole returns the enabled printers routed for a role.
func (s *Service) ListForRole(role models.PrinterRole) []models.Printer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Printer
	for _, p := range s.printers {
		if p.Enabled && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// indexOf returns the position of id in the list, or -1. Callers hold
// the lock.
func (s *Service) indexOf(id string) int {
	for i, p := range s.printers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(p *models.Printer, patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.ConnectionType != nil {
		p.ConnectionType = *patch.ConnectionType
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.IPAddress != nil {
		p.IPAddress = *patch.IPAddress
	}
	if patch.Port != nil {
		p.Port = *patch.Port
	}
	if patch.PrinterType != nil {
		p.PrinterType = *patch.PrinterType
	}
	if patch.PaperWidth != nil {
		p.PaperWidth = *patch.PaperWidth
	}
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
}
