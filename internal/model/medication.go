package model

import (
	"fmt"
	"strings"
)

// Defaults applied to optional add-medication fields.
const (
	DefaultIcon  = "💊"
	DefaultShape = "round"
	DefaultColor = "white"
)

// Medication is a catalog entry. Name is the identity.
type Medication struct {
	Name     string   `json:"name" validate:"required,notblank"`
	Dose     string   `json:"dose" validate:"required,notblank"`
	Schedule []string `json:"schedule" validate:"required,min=1,dive,hhmm"`
	Critical bool     `json:"critical"`
	Icon     string   `json:"icon"`
	Shape    string   `json:"shape"`
	Color    string   `json:"color"`
	Imprint  string   `json:"imprint"`
}

// Pill returns the physical description used for simulated matching.
func (m Medication) Pill() Pill {
	return Pill{Shape: m.Shape, Color: m.Color, Imprint: m.Imprint}
}

// ScheduledAt reports whether hhmm is one of the dose times.
func (m Medication) ScheduledAt(hhmm string) bool {
	for _, t := range m.Schedule {
		if t == hhmm {
			return true
		}
	}
	return false
}

// Pill is what the simulated scanner sees.
type Pill struct {
	Shape   string `json:"shape"`
	Color   string `json:"color"`
	Imprint string `json:"imprint"`
}

// Matches compares shape and color only; imprint is informational.
func (p Pill) Matches(other Pill) bool {
	return p.Shape == other.Shape && p.Color == other.Color
}

func (p Pill) String() string {
	return fmt.Sprintf("%s %s", p.Shape, p.Color)
}

// CreateMedicationRequest is the add-or-replace payload. Schedule is a
// comma-separated list of HH:MM times.
type CreateMedicationRequest struct {
	Name     string `json:"name" binding:"required,notblank"`
	Dose     string `json:"dose" binding:"required,notblank"`
	Schedule string `json:"schedule" binding:"required,schedule"`
	Critical bool   `json:"critical"`
	Icon     string `json:"icon"`
	Shape    string `json:"shape"`
	Color    string `json:"color"`
	Imprint  string `json:"imprint"`
}

// ToMedication fills in the optional defaults. Name and dose are kept as
// submitted so the entry round-trips unchanged.
func (r CreateMedicationRequest) ToMedication() Medication {
	med := Medication{
		Name:     r.Name,
		Dose:     r.Dose,
		Schedule: ParseSchedule(r.Schedule),
		Critical: r.Critical,
		Icon:     r.Icon,
		Shape:    r.Shape,
		Color:    r.Color,
		Imprint:  r.Imprint,
	}
	if med.Icon == "" {
		med.Icon = DefaultIcon
	}
	if med.Shape == "" {
		med.Shape = DefaultShape
	}
	if med.Color == "" {
		med.Color = DefaultColor
	}
	return med
}

// ParseSchedule splits a comma-separated schedule, trimming blanks.
func ParseSchedule(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
