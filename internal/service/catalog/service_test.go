package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository"
	"github.com/jwalitptl/mediguard/internal/repository/file"
	apperrors "github.com/jwalitptl/mediguard/pkg/errors"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

type failingRepo struct {
	meds    map[string]model.Medication
	loadErr error
	saveErr error
	saves   int
}

func (r *failingRepo) Load(context.Context) (map[string]model.Medication, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.meds, nil
}

func (r *failingRepo) Save(_ context.Context, meds map[string]model.Medication) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.meds = meds
	return nil
}

func newFileService(t *testing.T) (*Service, *file.CatalogRepository) {
	t.Helper()
	repo := file.NewCatalogRepository(filepath.Join(t.TempDir(), "medications.json"))
	m, _ := metrics.New("test")
	svc := NewService(repo, nil, m)
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	svc, _ := newFileService(t)

	meds := svc.List()
	require.Len(t, meds, 5)
	assert.Equal(t, "Aspirin", meds[0].Name)

	levo, ok := svc.Get("Levothyroxine")
	require.True(t, ok)
	assert.True(t, levo.Critical)
	assert.Equal(t, []string{"06:30"}, levo.Schedule)
}

func TestLoadPropagatesStorageErrors(t *testing.T) {
	svc := NewService(&failingRepo{loadErr: errors.New("permission denied")}, nil, nil)
	assert.Error(t, svc.Load(context.Background()))
}

func TestAddRoundTripsThroughStorage(t *testing.T) {
	svc, repo := newFileService(t)
	ctx := context.Background()

	med := model.CreateMedicationRequest{
		Name: "Warfarin", Dose: "2 mg", Schedule: "09:00, 21:00", Critical: true,
		Icon: "🩸", Shape: "round", Color: "pink", Imprint: "W2",
	}.ToMedication()

	replaced, err := svc.AddOrReplace(ctx, med)
	require.NoError(t, err)
	assert.False(t, replaced)

	reloaded := NewService(repo, nil, nil)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get("Warfarin")
	require.True(t, ok)
	assert.Equal(t, med, got)
	assert.Len(t, reloaded.List(), 6)
}

func TestAddKeepsSurroundingWhitespace(t *testing.T) {
	svc, repo := newFileService(t)
	ctx := context.Background()

	med := model.CreateMedicationRequest{Name: "Warfarin ", Dose: " 5 mg", Schedule: "09:00"}.ToMedication()
	_, err := svc.AddOrReplace(ctx, med)
	require.NoError(t, err)

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	got, ok := stored["Warfarin "]
	require.True(t, ok, "entry not found under the submitted name")
	assert.Equal(t, "Warfarin ", got.Name)
	assert.Equal(t, " 5 mg", got.Dose)
	_, trimmed := stored["Warfarin"]
	assert.False(t, trimmed)

	require.NoError(t, svc.Remove(ctx, "Warfarin "))
}

func TestAddReplacesExisting(t *testing.T) {
	svc, _ := newFileService(t)

	replaced, err := svc.AddOrReplace(context.Background(), model.Medication{
		Name: "Aspirin", Dose: "100 mg", Schedule: []string{"09:00"}, Shape: "round", Color: "white",
	})
	require.NoError(t, err)
	assert.True(t, replaced)

	got, _ := svc.Get("Aspirin")
	assert.Equal(t, "100 mg", got.Dose)
	assert.Len(t, svc.List(), 5)
}

func TestAddRejectsMissingFields(t *testing.T) {
	repo := &failingRepo{meds: map[string]model.Medication{}}
	svc := NewService(repo, nil, nil)
	require.NoError(t, svc.Load(context.Background()))

	cases := map[string]model.Medication{
		"no name":      {Dose: "1 mg", Schedule: []string{"08:00"}},
		"no dose":      {Name: "X", Schedule: []string{"08:00"}},
		"no schedule":  {Name: "X", Dose: "1 mg"},
		"bad schedule": {Name: "X", Dose: "1 mg", Schedule: []string{"8 o'clock"}},
		"blank name":   {Name: "   ", Dose: "1 mg", Schedule: []string{"08:00"}},
	}
	for name, med := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddOrReplace(context.Background(), med)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
		})
	}
	assert.Zero(t, repo.saves)
	assert.Empty(t, svc.List())
}

func TestFailedSaveLeavesCatalogUnchanged(t *testing.T) {
	repo := &failingRepo{meds: DefaultCatalog()}
	svc := NewService(repo, nil, nil)
	require.NoError(t, svc.Load(context.Background()))
	repo.saveErr = errors.New("disk full")

	_, err := svc.AddOrReplace(context.Background(), model.Medication{Name: "X", Dose: "1 mg", Schedule: []string{"08:00"}})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
	_, ok := svc.Get("X")
	assert.False(t, ok)

	err = svc.Remove(context.Background(), "Aspirin")
	require.Error(t, err)
	_, ok = svc.Get("Aspirin")
	assert.True(t, ok)
}

func TestRemove(t *testing.T) {
	svc, repo := newFileService(t)
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "Aspirin"))
	_, ok := svc.Get("Aspirin")
	assert.False(t, ok)

	meds, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, meds, "Aspirin")
	assert.Len(t, meds, 4)

	err = svc.Remove(ctx, "Aspirin")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestGetReturnsCopy(t *testing.T) {
	svc, _ := newFileService(t)

	med, _ := svc.Get("Aspirin")
	med.Schedule[0] = "23:59"

	again, _ := svc.Get("Aspirin")
	assert.Equal(t, "08:00", again.Schedule[0])
}

var _ repository.CatalogRepository = (*failingRepo)(nil)
