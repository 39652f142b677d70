package balance

import (
	"testing"

	"mergerfs-balance/internal/transfer"
)

func TestEscalationAbortsAtThreshold(t *testing.T) {
	// scenario 7: threshold=3, abort_on_error=true, three consecutive
	// Failed results -> shutdown requested on the third.
	e := &Escalation{Threshold: 3, AbortOnError: true}

	failed := transfer.Result{Status: transfer.Failed, Error: "boom"}
	if e.Observe(failed) {
		t.Fatalf("shutdown requested too early (1st failure)")
	}
	if e.Observe(failed) {
		t.Fatalf("shutdown requested too early (2nd failure)")
	}
	if !e.Observe(failed) {
		t.Fatalf("expected shutdown on 3rd consecutive failure")
	}
}

func TestEscalationResetsOnCompleted(t *testing.T) {
	e := &Escalation{Threshold: 2, AbortOnError: true}
	failed := transfer.Result{Status: transfer.Failed}
	completed := transfer.Result{Status: transfer.Completed}

	if e.Observe(failed) {
		t.Fatalf("shutdown requested too early")
	}
	e.Observe(completed) // resets the consecutive counter
	if e.Observe(failed) {
		t.Fatalf("shutdown requested too early after reset")
	}
	if !e.Observe(failed) {
		t.Fatalf("expected shutdown on 2nd consecutive failure after reset")
	}
}

func TestEscalationIgnoresCancelledResults(t *testing.T) {
	e := &Escalation{Threshold: 1, AbortOnError: true}
	if e.Observe(transfer.Result{Status: transfer.Cancelled}) {
		t.Fatalf("cancelled results must not drive escalation")
	}
}
