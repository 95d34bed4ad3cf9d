package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	submit := ActionHistory{ActionID: "submit", ActionName: "Submit", FromStateID: "draft", ToStateID: "review", ExecutedAt: t1}

	tests := []struct {
		name     string
		old      *Instance
		new      *Instance
		wantDiff *InstanceDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  NewInstance("inst-1", "def-1", "draft", t0),
			wantDiff: &InstanceDiff{
				InstanceID:     "inst-1",
				CurrentStateID: &[]string{"draft"}[0],
				LastUpdated:    &t0,
			},
		},
		{
			name:     "No Changes",
			old:      NewInstance("inst-1", "def-1", "draft", t0),
			new:      NewInstance("inst-1", "def-1", "draft", t0),
			wantDiff: nil,
		},
		{
			name: "Transition Appends History",
			old:  NewInstance("inst-1", "def-1", "draft", t0),
			new: &Instance{
				ID:             "inst-1",
				DefinitionID:   "def-1",
				CurrentStateID: "review",
				History:        []ActionHistory{submit},
				CreatedAt:      t0,
				LastUpdated:    t1,
			},
			wantDiff: &InstanceDiff{
				InstanceID:     "inst-1",
				CurrentStateID: &[]string{"review"}[0],
				LastUpdated:    &t1,
				HistoryDelta:   &HistoryDelta{Appended: []ActionHistory{submit}},
			},
		},
		{
			name:     "Nil New",
			old:      NewInstance("inst-1", "def-1", "draft", t0),
			new:      nil,
			wantDiff: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.wantDiff) {
				gotJSON, _ := json.Marshal(got)
				wantJSON, _ := json.Marshal(tt.wantDiff)
				t.Errorf("Diff() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestDiff_JSONShape(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	old := NewInstance("inst-1", "def-1", "draft", t0)
	next := old.Snapshot()
	next.CurrentStateID = "review"
	next.History = append(next.History, ActionHistory{ActionID: "submit", FromStateID: "draft", ToStateID: "review"})

	data, err := json.Marshal(Diff(old, next))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"instanceId":"inst-1"`, `"currentStateId":"review"`, `"appended":[`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "lastUpdated") {
		t.Errorf("unchanged lastUpdated should be omitted: %s", s)
	}
}
