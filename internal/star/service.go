package star

import (
	"context"
	"fmt"
	"strings"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, name string) (*Star, error)
	GetByID(ctx context.Context, id string) (*Star, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, search string) ([]Star, error)
	Rename(ctx context.Context, id, name string) (*Star, error)
}

// CascadeDeleter removes a star together with all of its images.
type CascadeDeleter interface {
	DeleteStarCascade(ctx context.Context, starID string) error
}

// Service contains business logic for star management.
type Service struct {
	store   Store
	cascade CascadeDeleter
}

// NewService creates a new star Service.
func NewService(store Store, cascade CascadeDeleter) *Service {
	return &Service{store: store, cascade: cascade}
}

// Create registers a new star. Uniqueness is a check-then-act pre-check:
// two concurrent creates with the same name can both succeed.
func (s *Service) Create(ctx context.Context, name string) (*Star, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	taken, err := s.store.NameTaken(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	st, err := s.store.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create star: %w", err)
	}
	return st, nil
}

// GetByID returns a star by id.
func (s *Service) GetByID(ctx context.Context, id string) (*Star, error) {
	return s.store.GetByID(ctx, id)
}

// List returns stars newest first, optionally filtered by name substring.
func (s *Service) List(ctx context.Context, search string) ([]Star, error) {
	return s.store.List(ctx, strings.TrimSpace(search))
}

// Rename changes a star's name, rejecting names used by any other star.
func (s *Service) Rename(ctx context.Context, id, name string) (*Star, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}

	taken, err := s.store.NameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	return s.store.Rename(ctx, id, name)
}

// Delete removes a star and cascades to its images.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.cascade.DeleteStarCascade(ctx, id)
}

// normalizeName rejects blank names. Names are stored exactly as given, so
// "IU" and "IU " are distinct.
func normalizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
