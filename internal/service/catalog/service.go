package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository"
	apperrors "github.com/jwalitptl/mediguard/pkg/errors"
	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/metrics"
	"github.com/jwalitptl/mediguard/pkg/validator"
)

type CatalogServicer interface {
	Get(name string) (model.Medication, bool)
	List() []model.Medication
	Snapshot() map[string]model.Medication
	AddOrReplace(ctx context.Context, med model.Medication) (bool, error)
	Remove(ctx context.Context, name string) error
}

// Service owns the in-memory catalog. Every mutation is persisted before it
// becomes visible; a failed save leaves the catalog unchanged.
type Service struct {
	repo     repository.CatalogRepository
	validate validator.Validator
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu   sync.RWMutex
	meds map[string]model.Medication
}

func NewService(repo repository.CatalogRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   log.WithComponent("catalog"),
		metrics:  m,
		meds:     make(map[string]model.Medication),
	}
}

var _ CatalogServicer = (*Service)(nil)

// Load reads the catalog from storage. A missing catalog falls back to the
// built-in defaults; any other storage error is returned.
func (s *Service) Load(ctx context.Context) error {
	meds, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrCatalogNotFound):
		s.logger.Info("no catalog on disk, using defaults")
		meds = DefaultCatalog()
	case err != nil:
		s.observe("load", err)
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	s.mu.Lock()
	s.meds = meds
	s.observe("load", nil)
	s.mu.Unlock()

	s.logger.Info("catalog loaded", "medications", len(meds))
	return nil
}

func (s *Service) Get(name string) (model.Medication, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	med, ok := s.meds[name]
	if !ok {
		return model.Medication{}, false
	}
	return clone(med), true
}

// List returns every entry ordered by name.
func (s *Service) List() []model.Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Medication, 0, len(s.meds))
	for _, med := range s.meds {
		out = append(out, clone(med))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) Snapshot() map[string]model.Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCatalog(s.meds)
}

// AddOrReplace validates and stores med, reporting whether an entry with the
// same name was replaced.
func (s *Service) AddOrReplace(ctx context.Context, med model.Medication) (bool, error) {
	if err := s.validate.Validate(med); err != nil {
		s.observe("add", err)
		return false, apperrors.BadRequest("invalid medication", err)
	}
	med = clone(med)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.meds[med.Name]
	next := copyCatalog(s.meds)
	next[med.Name] = med

	if err := s.repo.Save(ctx, next); err != nil {
		s.observe("add", err)
		return false, apperrors.Internal(fmt.Errorf("failed to persist catalog: %w", err))
	}
	s.meds = next
	s.observe("add", nil)

	s.logger.Info("medication saved", "name", med.Name, "replaced", replaced, "critical", med.Critical)
	return replaced, nil
}

func (s *Service) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meds[name]; !ok {
		err := apperrors.NotFound("medication", fmt.Errorf("%q", name))
		s.observe("remove", err)
		return err
	}
	next := copyCatalog(s.meds)
	delete(next, name)

	if err := s.repo.Save(ctx, next); err != nil {
		s.observe("remove", err)
		return apperrors.Internal(fmt.Errorf("failed to persist catalog: %w", err))
	}
	s.meds = next
	s.observe("remove", nil)

	s.logger.Info("medication removed", "name", name)
	return nil
}

func (s *Service) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.CatalogOperations.WithLabelValues(op, status).Inc()
	if err == nil {
		s.metrics.CatalogSize.Set(float64(len(s.meds)))
	}
}

func clone(med model.Medication) model.Medication {
	med.Schedule = append([]string(nil), med.Schedule...)
	return med
}

func copyCatalog(meds map[string]model.Medication) map[string]model.Medication {
	out := make(map[string]model.Medication, len(meds))
	for k, v := range meds {
		out[k] = clone(v)
	}
	return out
}
