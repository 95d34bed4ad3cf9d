package domain

import "time"

// InstanceDiff represents the changes between two snapshots of an instance.
// It is designed to be serialized to JSON for partial updates on the client.
type InstanceDiff struct {
	// InstanceID is always present to identify the target.
	InstanceID string `json:"instanceId"`

	CurrentStateID *string    `json:"currentStateId,omitempty"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`

	// HistoryDelta contains only the entries appended since the old snapshot.
	// History is append-only, so a prefix comparison is enough.
	HistoryDelta *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents new entries appended to the history.
type HistoryDelta struct {
	Appended []ActionHistory `json:"appended"`
}

// Diff calculates the difference between oldInst and newInst.
// If oldInst is nil, it returns a diff representing the entire newInst (initial load).
// It returns nil when nothing changed.
func Diff(oldInst, newInst *Instance) *InstanceDiff {
	if newInst == nil {
		return nil
	}

	diff := &InstanceDiff{InstanceID: newInst.ID}

	if oldInst == nil || oldInst.CurrentStateID != newInst.CurrentStateID {
		diff.CurrentStateID = &newInst.CurrentStateID
	}
	if oldInst == nil || !oldInst.LastUpdated.Equal(newInst.LastUpdated) {
		diff.LastUpdated = &newInst.LastUpdated
	}
	diff.HistoryDelta = diffHistory(oldInst, newInst)

	if diff.CurrentStateID == nil && diff.LastUpdated == nil && diff.HistoryDelta == nil {
		return nil
	}
	return diff
}

func diffHistory(oldInst, newInst *Instance) *HistoryDelta {
	start := 0
	if oldInst != nil {
		start = len(oldInst.History)
	}
	if len(newInst.History) <= start {
		return nil
	}
	appended := make([]ActionHistory, len(newInst.History)-start)
	copy(appended, newInst.History[start:])
	return &HistoryDelta{Appended: appended}
}
