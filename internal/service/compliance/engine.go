package compliance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

// Catalog is the read side of the medication catalog the engine needs.
type Catalog interface {
	Get(name string) (model.Medication, bool)
	List() []model.Medication
}

// Notifier receives every alert after it has been recorded.
type Notifier interface {
	AlertRaised(ctx context.Context, alert model.Alert)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent("compliance") }
}

// Engine holds the process-wide compliance state. All state is guarded by
// mu; the catalog has its own lock and is only ever read from here.
type Engine struct {
	catalog  Catalog
	verifier Verifier
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	currentMed *string
	missStreak int
	alerts     []model.Alert
	history    []model.ComplianceEvent
	nextDose   time.Time
	lastCheck  time.Time
	rate       int
	status     model.Status
}

func NewEngine(catalog Catalog, verifier Verifier, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		verifier: verifier,
		logger:   logger.Nop(),
		now:      time.Now,
		rate:     100,
		status:   model.StatusNormal,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now is the engine's clock; the scheduler compares against it.
func (e *Engine) Now() time.Time {
	return e.now()
}

// FindDueMedication returns the first catalog entry, in name order, that has
// a dose scheduled at the current HH:MM.
func (e *Engine) FindDueMedication() (model.Medication, bool) {
	return e.findDue(e.now())
}

func (e *Engine) findDue(now time.Time) (model.Medication, bool) {
	hhmm := now.Format(model.ClockLayout)
	for _, med := range e.catalog.List() {
		if med.ScheduledAt(hhmm) {
			return med, true
		}
	}
	return model.Medication{}, false
}

// RunCheck verifies the dose due now, records the outcome and escalates on
// a miss. It reports false when nothing is due.
func (e *Engine) RunCheck(ctx context.Context) (model.ComplianceEvent, bool) {
	now := e.now()
	med, ok := e.findDue(now)
	if !ok {
		return model.ComplianceEvent{}, false
	}

	others := make([]model.Medication, 0)
	for _, m := range e.catalog.List() {
		if m.Name != med.Name {
			others = append(others, m)
		}
	}
	result := e.verifier.Verify(med, others)

	e.mu.Lock()
	name := med.Name
	e.currentMed = &name

	event := model.ComplianceEvent{
		ID:         uuid.New(),
		Medication: med.Name,
		Timestamp:  now,
		Time:       now.Format(model.EventTimeLayout),
		Details:    describeScan(med.Pill(), result.Scanned),
	}

	var raised *model.Alert
	if result.Match {
		event.Status = model.OutcomeTaken
		e.missStreak = 0
	} else {
		event.Status = model.OutcomeMissed
		e.missStreak++
		a := e.raiseLocked(now, escalate(med, e.missStreak), med.Name, false)
		raised = &a
	}

	e.history = append([]model.ComplianceEvent{event}, e.history...)
	e.lastCheck = now
	e.rate = ComplianceRate(e.history)
	e.recomputeNextDoseLocked(now)
	streak := e.missStreak
	e.observeLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ChecksTotal.WithLabelValues(string(event.Status)).Inc()
	}
	e.logger.Info("dose checked",
		"medication", med.Name,
		"outcome", string(event.Status),
		"miss_streak", streak,
		"details", event.Details,
	)
	if raised != nil {
		e.notify(ctx, *raised)
	}
	return event, true
}

// escalate picks the alert tier for a miss: critical medications always go
// to emergency, otherwise three consecutive misses reach the caregiver.
func escalate(med model.Medication, streak int) model.Tier {
	switch {
	case med.Critical:
		return model.TierEmergency
	case streak >= 3:
		return model.TierCaregiver
	default:
		return model.TierFamily
	}
}

func describeScan(expected model.Pill, scanned *model.Pill) string {
	got := "None"
	if scanned != nil {
		got = scanned.String()
	}
	return fmt.Sprintf("Expected: %s, Scanned: %s", expected, got)
}

// RaiseAlert records an alert of the given tier for medication.
func (e *Engine) RaiseAlert(ctx context.Context, tier model.Tier, medication string) model.Alert {
	e.mu.Lock()
	alert := e.raiseLocked(e.now(), tier, medication, false)
	e.observeLocked()
	e.mu.Unlock()

	e.notify(ctx, alert)
	return alert
}

// TriggerEmergency records a help-button emergency regardless of state.
func (e *Engine) TriggerEmergency(ctx context.Context) model.Alert {
	e.mu.Lock()
	alert := e.raiseLocked(e.now(), model.TierEmergency, "", true)
	e.observeLocked()
	e.mu.Unlock()

	e.logger.Warn("manual emergency triggered", "alert_id", alert.ID.String())
	e.notify(ctx, alert)
	return alert
}

func (e *Engine) raiseLocked(now time.Time, tier model.Tier, medication string, manual bool) model.Alert {
	alert := newAlert(now, tier, medication, manual)
	e.alerts = append([]model.Alert{alert}, e.alerts...)
	e.status = statusFor(tier)
	if e.metrics != nil {
		e.metrics.AlertsRaised.WithLabelValues(string(tier)).Inc()
	}
	return alert
}

func newAlert(now time.Time, tier model.Tier, medication string, manual bool) model.Alert {
	alert := model.Alert{
		ID:         uuid.New(),
		Level:      tier,
		Message:    alertMessage(tier, medication, manual),
		Medication: medication,
		Timestamp:  now,
		Time:       now.Format(model.AlertTimeLayout),
	}
	if manual {
		alert.Medication = model.ManualEmergencyMedication
	}
	return alert
}

func statusFor(tier model.Tier) model.Status {
	if tier == model.TierEmergency {
		return model.StatusEmergency
	}
	return model.StatusAlert
}

func alertMessage(tier model.Tier, medication string, manual bool) string {
	if manual {
		return "EMERGENCY: Help button pressed! Medical assistance requested!"
	}
	switch tier {
	case model.TierCaregiver:
		return fmt.Sprintf("URGENT: 3 consecutive misses of %s", medication)
	case model.TierEmergency:
		return fmt.Sprintf("EMERGENCY: Critical medication %s missed!", medication)
	default:
		return fmt.Sprintf("Missed dose of %s", medication)
	}
}

// AcknowledgeAlert marks the alert at position index (newest first) read.
// Out-of-range indices are ignored and reported as false.
func (e *Engine) AcknowledgeAlert(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.alerts) {
		return false
	}
	e.ackLocked(index)
	return true
}

// AcknowledgeAlertByID marks the alert with the given id read.
func (e *Engine) AcknowledgeAlertByID(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.ackLocked(i)
			return true
		}
	}
	return false
}

func (e *Engine) ackLocked(i int) {
	e.alerts[i].Read = true
	for _, a := range e.alerts {
		if !a.Read {
			e.observeLocked()
			return
		}
	}
	e.status = model.StatusNormal
	e.observeLocked()
}

// RecomputeNextDose sets the next-dose time to the earliest scheduled time
// later today. When every dose today has passed the previous value is kept
// and false is returned.
func (e *Engine) RecomputeNextDose() (time.Time, bool) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.recomputeNextDoseLocked(now)
	e.observeLocked()
	return e.nextDose, ok
}

// StartDay sets the next-dose time to the first dose on the current calendar
// day, including doses at 00:00 and any that fall before now. The rollover
// job calls it right after midnight; a dose already passed is then either
// checked on the next poll or skipped by the scheduler's recompute.
func (e *Engine) StartDay() (time.Time, bool) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := FirstDoseOfDay(e.catalog.List(), now)
	if ok {
		e.nextDose = next
	}
	e.observeLocked()
	return e.nextDose, ok
}

func (e *Engine) recomputeNextDoseLocked(now time.Time) bool {
	next, ok := NextDoseAfter(e.catalog.List(), now)
	if ok {
		e.nextDose = next
	}
	return ok
}

// NextDoseAfter finds the earliest dose today strictly after now.
func NextDoseAfter(meds []model.Medication, now time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, med := range meds {
		for _, hhmm := range med.Schedule {
			at, err := TodayAt(now, hhmm)
			if err != nil {
				continue
			}
			if at.After(now) && (!found || at.Before(next)) {
				next = at
				found = true
			}
		}
	}
	return next, found
}

// FirstDoseOfDay finds the earliest dose on day's calendar date.
func FirstDoseOfDay(meds []model.Medication, day time.Time) (time.Time, bool) {
	var first time.Time
	found := false
	for _, med := range meds {
		for _, hhmm := range med.Schedule {
			at, err := TodayAt(day, hhmm)
			if err != nil {
				continue
			}
			if !found || at.Before(first) {
				first = at
				found = true
			}
		}
	}
	return first, found
}

// TodayAt returns hhmm on now's calendar day in now's location.
func TodayAt(now time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(model.ClockLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dose time %q: %w", hhmm, err)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// NextDose returns the scheduled next-dose time; zero until one is known.
func (e *Engine) NextDose() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextDose
}

// SeedHistory replaces the history, newest first, and recomputes the rate.
// Today's events are replayed through the escalation rules, so the state
// starts with the alerts, miss streak and status they would have produced.
// Replayed alerts are not sent to the notifier.
func (e *Engine) SeedHistory(events []model.ComplianceEvent) {
	sorted := append([]model.ComplianceEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = sorted
	e.rate = ComplianceRate(e.history)
	e.replayDayLocked(now)
	e.observeLocked()
}

func (e *Engine) replayDayLocked(now time.Time) {
	y, m, d := now.Date()
	for i := len(e.history) - 1; i >= 0; i-- {
		ev := e.history[i]
		ey, em, ed := ev.Timestamp.In(now.Location()).Date()
		if ey != y || em != m || ed != d || ev.Timestamp.After(now) {
			continue
		}

		name := ev.Medication
		e.currentMed = &name
		e.lastCheck = ev.Timestamp
		if ev.Status != model.OutcomeMissed {
			e.missStreak = 0
			continue
		}
		e.missStreak++
		med, _ := e.catalog.Get(ev.Medication)
		tier := escalate(med, e.missStreak)
		e.alerts = append([]model.Alert{newAlert(ev.Timestamp, tier, ev.Medication, false)}, e.alerts...)
		e.status = statusFor(tier)
	}
}

// State returns a deep copy of the engine state.
func (e *Engine) State() model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := model.EngineState{
		MissedCount:       e.missStreak,
		Alerts:            append([]model.Alert{}, e.alerts...),
		ComplianceHistory: append([]model.ComplianceEvent{}, e.history...),
		ComplianceRate:    e.rate,
		Status:            e.status,
	}
	if e.currentMed != nil {
		name := *e.currentMed
		st.CurrentMed = &name
	}
	if !e.nextDose.IsZero() {
		t := e.nextDose
		st.NextDoseTime = &t
	}
	if !e.lastCheck.IsZero() {
		t := e.lastCheck
		st.LastCheck = &t
	}
	return st
}

func (e *Engine) Status() model.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) Alerts() []model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Alert{}, e.alerts...)
}

func (e *Engine) History() []model.ComplianceEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.ComplianceEvent{}, e.history...)
}

func (e *Engine) notify(ctx context.Context, alert model.Alert) {
	if e.notifier == nil {
		return
	}
	e.notifier.AlertRaised(ctx, alert)
}

func (e *Engine) observeLocked() {
	if e.metrics == nil {
		return
	}
	unread := 0
	for _, a := range e.alerts {
		if !a.Read {
			unread++
		}
	}
	e.metrics.AlertsUnread.Set(float64(unread))
	e.metrics.ComplianceRate.Set(float64(e.rate))
	e.metrics.MissStreak.Set(float64(e.missStreak))
	if !e.nextDose.IsZero() {
		e.metrics.NextDoseTimestamp.Set(float64(e.nextDose.Unix()))
	}
}

// TimeCheck wraps RunCheck with the latency histogram.
func (e *Engine) TimeCheck(ctx context.Context) (model.ComplianceEvent, bool) {
	if e.metrics == nil {
		return e.RunCheck(ctx)
	}
	timer := prometheus.NewTimer(e.metrics.CheckLatency)
	defer timer.ObserveDuration()
	return e.RunCheck(ctx)
}
