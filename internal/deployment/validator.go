// Package deployment implements the Deployment Validator (C4): a
// synthetic security/complexity gate invoked after a submission's tests
// all pass. Built fresh in the teacher's idiom (small struct holding an
// Enabled/MinScore config) since no example repo implements anything like
// it; see DESIGN.md for why math/rand alone is the right call here.
package deployment

import (
	"fmt"
	"math/rand"
	"time"
)

const criticalFailureProbability = 0.05

// randSource is the slice of *rand.Rand the validator needs; satisfied by
// *rand.Rand itself, and by a fixed-value fake in tests.
type randSource interface {
	Float64() float64
	Intn(n int) int
}

// Validator gates AC verdicts behind a simulated deployment check.
type Validator struct {
	Enabled  bool
	MinScore int
	rng      randSource
}

// New builds a Validator from its two configuration knobs.
func New(enabled bool, minScore int) *Validator {
	return &Validator{Enabled: enabled, MinScore: minScore, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewWithSource builds a Validator over a caller-supplied random source, for
// deterministic tests of the veto/score thresholds.
func NewWithSource(enabled bool, minScore int, rng randSource) *Validator {
	return &Validator{Enabled: enabled, MinScore: minScore, rng: rng}
}

// Validate runs the gate for language. When disabled it always passes.
// Otherwise it draws a 5% chance of a hard veto, then a uniform score in
// [MinScore-10, 100] that must clear MinScore.
func (v *Validator) Validate(language string) (ok bool, message string) {
	if !v.Enabled {
		return true, "skipped"
	}

	if v.rng.Float64() < criticalFailureProbability {
		return false, fmt.Sprintf("Critical dependency failed during security audit for %s submission.", language)
	}

	low := v.MinScore - 10
	score := low + v.rng.Intn(100-low+1)
	if score < v.MinScore {
		return false, fmt.Sprintf("Code failed static analysis (Security Score: %d/%d).", score, v.MinScore)
	}
	return true, "Deployment validation successful."
}
