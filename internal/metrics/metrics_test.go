package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetWalletFSMState(t *testing.T) {
	m := New()
	m.SetWalletFSMState(3)
	if got := testutil.ToFloat64(m.WalletFSMState); got != 3 {
		t.Fatalf("WalletFSMState = %v, want 3", got)
	}
}

func TestRecordRelay_SucceededAddsEarnings(t *testing.T) {
	m := New()
	m.RecordRelay(true, 500)
	m.RecordRelay(true, 250)
	m.RecordRelay(false, 0)

	if got := testutil.ToFloat64(m.TrampolineRelayEarningsMsatTotal); got != 750 {
		t.Fatalf("earnings total = %v, want 750", got)
	}
	if got := testutil.ToFloat64(m.TrampolineRelaysTotal.WithLabelValues("succeeded")); got != 2 {
		t.Fatalf("succeeded relays = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TrampolineRelaysTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed relays = %v, want 1", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ChainTipHeight.Set(123456)

	if m.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}
