package compliance

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jwalitptl/mediguard/internal/model"
)

// Verification is the result of one simulated pill scan. Scanned is nil when
// nothing recognisable was in front of the camera.
type Verification struct {
	Scanned *model.Pill
	Match   bool
}

// Verifier stands in for pill-recognition hardware.
type Verifier interface {
	Verify(expected model.Medication, others []model.Medication) Verification
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(expected model.Medication, others []model.Medication) Verification

func (f VerifierFunc) Verify(expected model.Medication, others []model.Medication) Verification {
	return f(expected, others)
}

// Default probabilities of the simulated sensor.
const (
	DefaultTakeProbability   = 0.7
	DefaultSensorReliability = 0.85
)

// RandomVerifier simulates a scan in two independent stages. First the
// patient takes the expected pill with TakeProbability, otherwise a random
// other catalog entry. Then the sensor compares shape and color with
// probability SensorReliability and reports a mismatch otherwise.
type RandomVerifier struct {
	takeProbability   float64
	sensorReliability float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomVerifier builds a verifier; seed 0 seeds from the clock.
func NewRandomVerifier(takeProbability, sensorReliability float64, seed int64) *RandomVerifier {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomVerifier{
		takeProbability:   clamp(takeProbability),
		sensorReliability: clamp(sensorReliability),
		rng:               rand.New(rand.NewSource(seed)),
	}
}

func (v *RandomVerifier) Verify(expected model.Medication, others []model.Medication) Verification {
	v.mu.Lock()
	defer v.mu.Unlock()

	var scanned *model.Pill
	if v.rng.Float64() < v.takeProbability {
		p := expected.Pill()
		scanned = &p
	} else if len(others) > 0 {
		p := others[v.rng.Intn(len(others))].Pill()
		scanned = &p
	}

	if v.rng.Float64() >= v.sensorReliability {
		return Verification{Scanned: scanned, Match: false}
	}
	return Verification{
		Scanned: scanned,
		Match:   scanned != nil && scanned.Matches(expected.Pill()),
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// AlwaysTaken and AlwaysMissed are fixed verifiers for demos and tests.
var (
	AlwaysTaken = VerifierFunc(func(expected model.Medication, _ []model.Medication) Verification {
		p := expected.Pill()
		return Verification{Scanned: &p, Match: true}
	})
	AlwaysMissed = VerifierFunc(func(model.Medication, []model.Medication) Verification {
		return Verification{}
	})
)
