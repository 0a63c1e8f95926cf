package model

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the severity of an alert: family < caregiver < emergency.
type Tier string

const (
	TierFamily    Tier = "family"
	TierCaregiver Tier = "caregiver"
	TierEmergency Tier = "emergency"
)

// Rank orders tiers; unknown tiers rank below family.
func (t Tier) Rank() int {
	switch t {
	case TierFamily:
		return 1
	case TierCaregiver:
		return 2
	case TierEmergency:
		return 3
	default:
		return 0
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t.Rank() > 0
}

// ManualEmergencyMedication is the placeholder medication on a help-button alert.
const ManualEmergencyMedication = "Emergency"

type Alert struct {
	ID         uuid.UUID `json:"id"`
	Level      Tier      `json:"level"`
	Message    string    `json:"message"`
	Medication string    `json:"medication"`
	Timestamp  time.Time `json:"timestamp"`
	Time       string    `json:"time"`
	Read       bool      `json:"read"`
}

// Status is the overall dashboard status.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusAlert     Status = "alert"
	StatusEmergency Status = "emergency"
)
