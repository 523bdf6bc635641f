package azdo

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"devkpi/internal/scoring"
	"devkpi/internal/timeline"
)

func testMapping(t *testing.T) timeline.Mapping {
	t.Helper()
	m, err := timeline.NewMapping(map[string]timeline.Category{
		"new":     timeline.CategoryAssigned,
		"active":  timeline.CategoryProductive,
		"blocked": timeline.CategoryPaused,
		"closed":  timeline.CategoryCompletion,
	}, timeline.CategoryIgnored)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func rawFields(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		out[k] = data
	}
	return out
}

func stateUpdate(ts, newState string) UpdateDTO {
	return UpdateDTO{
		Fields: map[string]FieldUpdate{
			FieldState:       {NewValue: json.RawMessage(fmt.Sprintf("%q", newState))},
			FieldChangedDate: {NewValue: json.RawMessage(fmt.Sprintf("%q", ts))},
		},
	}
}

func TestBuildItem_FullHistory(t *testing.T) {
	wi := WorkItemDTO{
		ID: 42,
		Fields: rawFields(t, map[string]any{
			FieldTitle:            "Implement login",
			FieldState:            "Closed",
			FieldWorkItemType:     "User Story",
			FieldTeamProject:      "Platform",
			FieldAssignedTo:       map[string]string{"displayName": "Ada Lovelace"},
			FieldOriginalEstimate: 8.0,
			FieldTargetDate:       "2024-01-12T00:00:00Z",
			FieldClosedDate:       "2024-01-11T17:00:00Z",
		}),
	}
	updates := []UpdateDTO{
		stateUpdate("2024-01-10T09:00:00Z", "New"),
		stateUpdate("2024-01-10T10:00:00Z", "Active"),
		stateUpdate("2024-01-11T17:00:00Z", "Closed"),
	}

	item, err := BuildItem(wi, updates, testMapping(t), scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if item.ID != 42 || item.Developer != "Ada Lovelace" || item.Project != "Platform" {
		t.Errorf("identity fields wrong: %+v", item)
	}
	if item.EstimatedHours != 8.0 {
		t.Errorf("EstimatedHours = %v, want 8", item.EstimatedHours)
	}
	if item.TargetDate == nil || item.ClosedDate == nil {
		t.Fatal("dates not mapped")
	}
	if len(item.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(item.Events))
	}
	if item.Events[1].Category != timeline.CategoryProductive {
		t.Errorf("Active mapped to %s", item.Events[1].Category)
	}
	if item.Events[2].Category != timeline.CategoryCompletion {
		t.Errorf("Closed mapped to %s", item.Events[2].Category)
	}
	want := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	if !item.Events[1].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", item.Events[1].Timestamp, want)
	}
}

func TestBuildItem_DefaultEstimateByType(t *testing.T) {
	wi := WorkItemDTO{
		ID: 7,
		Fields: rawFields(t, map[string]any{
			FieldState:        "Active",
			FieldWorkItemType: "Bug",
		}),
	}
	item, err := BuildItem(wi, []UpdateDTO{stateUpdate("2024-01-10T09:00:00Z", "Active")}, testMapping(t), scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.EstimatedHours != 2.0 {
		t.Errorf("bug default estimate = %v, want 2", item.EstimatedHours)
	}
}

func TestBuildItem_RevisedDateFallback(t *testing.T) {
	upd := UpdateDTO{
		RevisedDate: "2024-01-10T12:00:00Z",
		Fields: map[string]FieldUpdate{
			FieldState: {NewValue: json.RawMessage(`"Active"`)},
		},
	}
	item, err := BuildItem(WorkItemDTO{ID: 1}, []UpdateDTO{upd}, testMapping(t), scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	if len(item.Events) != 1 || !item.Events[0].Timestamp.Equal(want) {
		t.Errorf("events = %+v, want single event at %v", item.Events, want)
	}
}

func TestBuildItem_MalformedTimestampIsAnError(t *testing.T) {
	upd := UpdateDTO{
		RevisedDate: "not-a-date",
		Fields: map[string]FieldUpdate{
			FieldState: {NewValue: json.RawMessage(`"Active"`)},
		},
	}
	if _, err := BuildItem(WorkItemDTO{ID: 9}, []UpdateDTO{upd}, testMapping(t), scoring.DefaultConfig()); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestBuildItem_NoUpdatesSynthesizesCreationEvent(t *testing.T) {
	wi := WorkItemDTO{
		ID: 3,
		Fields: rawFields(t, map[string]any{
			FieldState:       "New",
			FieldCreatedDate: "2024-01-08T09:00:00Z",
		}),
	}
	item, err := BuildItem(wi, nil, testMapping(t), scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(item.Events) != 1 || item.Events[0].Category != timeline.CategoryAssigned {
		t.Errorf("events = %+v, want single assigned event", item.Events)
	}
}

func TestWorkItemDTO_AssignedToPlainString(t *testing.T) {
	wi := WorkItemDTO{Fields: map[string]json.RawMessage{
		FieldAssignedTo: json.RawMessage(`"Grace Hopper <grace@example.com>"`),
	}}
	if got := wi.AssignedTo(); got != "Grace Hopper <grace@example.com>" {
		t.Errorf("AssignedTo = %q", got)
	}
}

func TestParseTime_Formats(t *testing.T) {
	cases := []string{
		"2024-01-10T15:04:05.123Z",
		"2024-01-10T15:04:05Z",
		"2024-01-10T15:04:05",
		"2024-01-10T15:04:05.123456-06:00",
	}
	for _, s := range cases {
		if _, err := ParseTime(s); err != nil {
			t.Errorf("ParseTime(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseTime("10/01/2024"); err == nil {
		t.Error("expected failure for non-ISO timestamp")
	}
}
