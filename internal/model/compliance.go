package model

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeTaken  Outcome = "Taken"
	OutcomeMissed Outcome = "Missed"
)

// Display formats kept from the dashboard.
const (
	EventTimeLayout = "2006-01-02 15:04"
	AlertTimeLayout = "15:04:05"
	ClockLayout     = "15:04"
)

// ComplianceEvent is immutable once appended to the history.
type ComplianceEvent struct {
	ID         uuid.UUID `json:"id"`
	Medication string    `json:"medication"`
	Timestamp  time.Time `json:"timestamp"`
	Time       string    `json:"time"`
	Status     Outcome   `json:"status"`
	Details    string    `json:"details"`
}

// EngineState is a point-in-time copy of the compliance engine.
type EngineState struct {
	CurrentMed        *string           `json:"current_med"`
	MissedCount       int               `json:"missed_count"`
	Alerts            []Alert           `json:"alerts"`
	ComplianceHistory []ComplianceEvent `json:"compliance_history"`
	NextDoseTime      *time.Time        `json:"next_dose_time"`
	LastCheck         *time.Time        `json:"last_check"`
	ComplianceRate    int               `json:"compliance_rate"`
	Status            Status            `json:"status"`
}

// Dashboard is the read-model served to the UI.
type Dashboard struct {
	State EngineState           `json:"state"`
	Meds  map[string]Medication `json:"meds"`
	Now   time.Time             `json:"now"`
}
