package compliance

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/mediguard/internal/model"
)

// SeedConfig controls the synthetic history generated at start-up.
type SeedConfig struct {
	Days        int
	TakenRatio  float64
	// MissedToday lists "Name@HH:MM" doses recorded as missed with nothing
	// scanned if they have already passed today.
	MissedToday []string
	Rand        *rand.Rand
}

// GenerateHistory produces one event per scheduled dose for the previous
// cfg.Days days and for the doses already passed today, newest first.
func GenerateHistory(meds []model.Medication, now time.Time, cfg SeedConfig) []model.ComplianceEvent {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	forced := make(map[string]bool, len(cfg.MissedToday))
	for _, dose := range cfg.MissedToday {
		forced[strings.TrimSpace(dose)] = true
	}

	var events []model.ComplianceEvent
	for d := cfg.Days; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		for _, med := range meds {
			for _, hhmm := range med.Schedule {
				at, err := TodayAt(day, hhmm)
				if err != nil || at.After(now) {
					continue
				}
				if d == 0 && forced[med.Name+"@"+hhmm] {
					events = append(events, missedEvent(med, at))
					continue
				}
				events = append(events, seedEvent(med, meds, at, cfg.TakenRatio, rng))
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

func missedEvent(med model.Medication, at time.Time) model.ComplianceEvent {
	return model.ComplianceEvent{
		ID:         uuid.New(),
		Medication: med.Name,
		Timestamp:  at,
		Time:       at.Format(model.EventTimeLayout),
		Status:     model.OutcomeMissed,
		Details:    describeScan(med.Pill(), nil),
	}
}

func seedEvent(med model.Medication, meds []model.Medication, at time.Time, takenRatio float64, rng *rand.Rand) model.ComplianceEvent {
	ev := model.ComplianceEvent{
		ID:         uuid.New(),
		Medication: med.Name,
		Timestamp:  at,
		Time:       at.Format(model.EventTimeLayout),
	}

	expected := med.Pill()
	if rng.Float64() < takenRatio {
		ev.Status = model.OutcomeTaken
		ev.Details = describeScan(expected, &expected)
		return ev
	}

	ev.Status = model.OutcomeMissed
	var others []model.Medication
	for _, m := range meds {
		if m.Name != med.Name {
			others = append(others, m)
		}
	}
	if rng.Float64() < 0.5 || len(others) == 0 {
		ev.Details = describeScan(expected, nil)
		return ev
	}
	wrong := others[rng.Intn(len(others))].Pill()
	ev.Details = describeScan(expected, &wrong)
	return ev
}
