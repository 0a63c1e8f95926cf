package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository"
)

// record is the on-disk shape of one medication; the name is the map key.
type record struct {
	Shape    string   `json:"shape"`
	Color    string   `json:"color"`
	Imprint  string   `json:"imprint"`
	Schedule []string `json:"schedule"`
	Critical bool     `json:"critical"`
	Dose     string   `json:"dose"`
	Icon     string   `json:"icon"`
}

// CatalogRepository stores the catalog as one indented JSON object.
type CatalogRepository struct {
	path string
	mu   sync.Mutex
}

func NewCatalogRepository(path string) *CatalogRepository {
	return &CatalogRepository{path: path}
}

var _ repository.CatalogRepository = (*CatalogRepository)(nil)

func (r *CatalogRepository) Path() string {
	return r.path
}

func (r *CatalogRepository) Load(ctx context.Context) (map[string]model.Medication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", r.path, err)
	}

	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", r.path, err)
	}

	meds := make(map[string]model.Medication, len(records))
	for name, rec := range records {
		meds[name] = model.Medication{
			Name:     name,
			Dose:     rec.Dose,
			Schedule: rec.Schedule,
			Critical: rec.Critical,
			Icon:     rec.Icon,
			Shape:    rec.Shape,
			Color:    rec.Color,
			Imprint:  rec.Imprint,
		}
	}
	return meds, nil
}

// Save replaces the file through a temp file and rename, so readers never
// see a partial catalog.
func (r *CatalogRepository) Save(ctx context.Context, meds map[string]model.Medication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make(map[string]record, len(meds))
	for name, med := range meds {
		schedule := med.Schedule
		if schedule == nil {
			schedule = []string{}
		}
		records[name] = record{
			Shape:    med.Shape,
			Color:    med.Color,
			Imprint:  med.Imprint,
			Schedule: schedule,
			Critical: med.Critical,
			Dose:     med.Dose,
			Icon:     med.Icon,
		}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".medications-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}
