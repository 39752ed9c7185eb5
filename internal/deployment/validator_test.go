package deployment

import (
	"strings"
	"testing"
)

// fixedSource is a deterministic randSource fake, in the teacher's
// lowercase mock* style.
type fixedSource struct {
	float64Val float64
	intnVal    int
}

func (f fixedSource) Float64() float64 { return f.float64Val }
func (f fixedSource) Intn(n int) int   { return f.intnVal }

func TestValidateSkippedWhenDisabled(t *testing.T) {
	v := New(false, 60)
	ok, msg := v.Validate("python")
	if !ok || msg != "skipped" {
		t.Fatalf("got ok=%v msg=%q", ok, msg)
	}
}

func TestValidateCriticalVeto(t *testing.T) {
	v := NewWithSource(true, 60, fixedSource{float64Val: 0.01})
	ok, msg := v.Validate("python")
	if ok {
		t.Fatal("expected veto below the 5% threshold")
	}
	if !strings.Contains(msg, "security audit") {
		t.Fatalf("got %q", msg)
	}
}

func TestValidateScoreBelowMinimum(t *testing.T) {
	// Float64=0.99 skips the critical-veto branch; Intn=0 draws the lowest
	// score in [MinScore-10, 100], which is below MinScore.
	v := NewWithSource(true, 60, fixedSource{float64Val: 0.99, intnVal: 0})
	ok, msg := v.Validate("java")
	if ok {
		t.Fatal("expected a static-analysis failure")
	}
	if !strings.Contains(msg, "Security Score: 50/60") {
		t.Fatalf("got %q", msg)
	}
}

func TestValidatePassingScore(t *testing.T) {
	v := NewWithSource(true, 60, fixedSource{float64Val: 0.99, intnVal: 50})
	ok, msg := v.Validate("c")
	if !ok || msg != "Deployment validation successful." {
		t.Fatalf("got ok=%v msg=%q", ok, msg)
	}
}
