package dag

import "testing"

func TestEvaluateTrigger(t *testing.T) {
	tests := []struct {
		name string
		rule TriggerRule
		deps map[string]TaskState
		run  bool
	}{
		{"all success, no deps", AllSuccess, nil, true},
		{"all success, deps succeeded", AllSuccess, map[string]TaskState{"a": StateSuccess, "b": StateSuccess}, true},
		{"all success, one failed", AllSuccess, map[string]TaskState{"a": StateSuccess, "b": StateFailure}, false},
		{"all success, skipped dep", AllSuccess, map[string]TaskState{"a": StateSkipped}, false},
		{"all done, all failed", AllDone, map[string]TaskState{"a": StateFailure, "b": StateFailure}, true},
		{"all done, mixed", AllDone, map[string]TaskState{"a": StateSkipped, "b": StateSuccess}, true},
		{"all done, dep still running", AllDone, map[string]TaskState{"a": StateRunning}, false},
		{"all success, dep pending", AllSuccess, map[string]TaskState{"a": StatePending}, false},
		{"empty rule means all success", "", map[string]TaskState{"a": StateFailure}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateTrigger(tt.rule, tt.deps)
			if d.Run != tt.run {
				t.Fatalf("expected run=%v, got %+v", tt.run, d)
			}
			if !d.Run && d.Reason == "" {
				t.Error("a skip must carry a reason")
			}
		})
	}
}

func TestEvaluateTrigger_ReasonNamesFirstUpstream(t *testing.T) {
	d := EvaluateTrigger(AllSuccess, map[string]TaskState{"z": StateFailure, "b": StateSkipped})
	if d.Reason != "upstream b is SKIPPED" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}

func TestParseTriggerRule(t *testing.T) {
	for in, want := range map[string]TriggerRule{"": AllSuccess, "all_done": AllDone, " ALL_SUCCESS ": AllSuccess} {
		got, err := ParseTriggerRule(in)
		if err != nil || got != want {
			t.Errorf("ParseTriggerRule(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTriggerRule("one_failed"); err == nil {
		t.Error("expected error for unknown rule")
	}
}
