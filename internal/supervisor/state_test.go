package supervisor

import (
	"encoding/json"
	"testing"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StatePending:  "pending",
		StateStarting: "starting",
		StateReady:    "ready",
		StateFailed:   "failed",
		StateStopped:  "stopped",
		State(99):     "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Fatalf("%d: %q, want %q", st, got, want)
		}
	}
}

func TestTransitionJSON(t *testing.T) {
	tr := Transition{Service: "db", From: StateStarting, To: StateReady}
	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["from"] != "starting" || m["to"] != "ready" {
		t.Fatalf("marshaled: %s", b)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != FailFast {
		t.Fatalf("default: %v %v", p, err)
	}
	if p, err := ParsePolicy("proceed_anyway"); err != nil || p != ProceedAnyway {
		t.Fatalf("proceed: %v %v", p, err)
	}
	if _, err := ParsePolicy("bogus"); err == nil {
		t.Fatal("expected error")
	}
}
