package azdo

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field reference names used by the work item tracking API.
const (
	FieldState            = "System.State"
	FieldTitle            = "System.Title"
	FieldWorkItemType     = "System.WorkItemType"
	FieldTeamProject      = "System.TeamProject"
	FieldAssignedTo       = "System.AssignedTo"
	FieldCreatedDate      = "System.CreatedDate"
	FieldChangedDate      = "System.ChangedDate"
	FieldOriginalEstimate = "Microsoft.VSTS.Scheduling.OriginalEstimate"
	FieldTargetDate       = "Microsoft.VSTS.Scheduling.TargetDate"
	FieldClosedDate       = "Microsoft.VSTS.Common.ClosedDate"
)

type wiqlResponse struct {
	WorkItems []workItemRef `json:"workItems"`
}

type workItemRef struct {
	ID int `json:"id"`
}

type workItemListResponse struct {
	Count int           `json:"count"`
	Value []WorkItemDTO `json:"value"`
}

// WorkItemDTO is a single work item as returned by the batch read endpoint.
// Fields is keyed by reference name; values are raw JSON because Azure DevOps
// mixes strings, numbers, and identity objects in the same map.
type WorkItemDTO struct {
	ID     int                        `json:"id"`
	Rev    int                        `json:"rev"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// StringField decodes a string-valued field; missing fields return "".
func (w WorkItemDTO) StringField(name string) string {
	raw, ok := w.Fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// FloatField decodes a numeric field; missing or malformed fields return 0.
func (w WorkItemDTO) FloatField(name string) float64 {
	raw, ok := w.Fields[name]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

// TimeField decodes a date field; returns nil when absent or unparseable.
func (w WorkItemDTO) TimeField(name string) *time.Time {
	s := w.StringField(name)
	if s == "" {
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

// AssignedTo extracts the display name from the identity field.
func (w WorkItemDTO) AssignedTo() string {
	raw, ok := w.Fields[FieldAssignedTo]
	if !ok {
		return ""
	}
	var identity struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(raw, &identity); err != nil {
		// Older server versions return the identity as a plain string
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	return identity.DisplayName
}

type updateListResponse struct {
	Count int         `json:"count"`
	Value []UpdateDTO `json:"value"`
}

// UpdateDTO is a single revision in a work item's updates feed.
type UpdateDTO struct {
	ID          int                    `json:"id"`
	Rev         int                    `json:"rev"`
	RevisedDate string                 `json:"revisedDate"`
	Fields      map[string]FieldUpdate `json:"fields"`
}

// FieldUpdate is an old/new value pair for one field within an update.
type FieldUpdate struct {
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// NewString decodes the new value as a string, or "" if absent.
func (f FieldUpdate) NewString() string {
	if len(f.NewValue) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.NewValue, &s); err != nil {
		return ""
	}
	return s
}

// azdoTimeFormats covers the timestamp variants the service emits. Most dates
// are UTC with millisecond precision; WIQL-sourced dates may omit fractions.
var azdoTimeFormats = []string{
	"2006-01-02T15:04:05.999Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseTime parses an Azure DevOps timestamp string.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range azdoTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
