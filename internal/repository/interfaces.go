package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/mediguard/internal/model"
)

// ErrCatalogNotFound is returned by Load when nothing has been persisted yet.
var ErrCatalogNotFound = errors.New("catalog not found")

type (
	// CatalogRepository persists the medication catalog as a whole.
	CatalogRepository interface {
		Load(ctx context.Context) (map[string]model.Medication, error)
		Save(ctx context.Context, meds map[string]model.Medication) error
	}
)
