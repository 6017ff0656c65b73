package pipeline

import "testing"

func TestTrackerDefaults(t *testing.T) {
	tr := NewTracker()
	status := tr.Get()
	if status["running"] != false {
		t.Fatal("pipeline should start not running")
	}
	if status["message"] == "" {
		t.Fatal("default status should carry a message")
	}
}

func TestTrackerSetForwardsVerbatim(t *testing.T) {
	tr := NewTracker()
	var gotEvent string
	var gotPayload any
	tr.OnUpdate(func(event string, payload any) {
		gotEvent = event
		gotPayload = payload
	})

	update := map[string]any{"running": true, "progress": 40, "message": "Running TalkTagger pipeline...", "custom_field": "x"}
	tr.Set(update)

	if gotEvent != "pipeline_status_update" {
		t.Fatalf("expected pipeline_status_update, got %q", gotEvent)
	}
	forwarded, ok := gotPayload.(map[string]any)
	if !ok || forwarded["custom_field"] != "x" {
		t.Fatal("payload must be forwarded verbatim, unknown fields included")
	}
	if tr.Get()["progress"] != 40 {
		t.Fatalf("tracker should store the latest status, got %v", tr.Get()["progress"])
	}
}

func TestTrackerGetCopies(t *testing.T) {
	tr := NewTracker()
	snapshot := tr.Get()
	snapshot["running"] = true
	if tr.Get()["running"] != false {
		t.Fatal("mutating a snapshot must not affect the tracker")
	}
}
