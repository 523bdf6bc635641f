package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"devkpi/internal/engine"
	"devkpi/internal/timeline"
)

// Tool name constants.
const (
	ToolNameTimeBreakdown   = "compute_time_breakdown"
	ToolNameScoreItem       = "score_work_item"
	ToolNameScoreDevelopers = "score_developers"
)

// Sentinel errors for tool input validation.
var (
	// ErrNoEvents indicates an empty state-change history.
	ErrNoEvents = errors.New("events parameter is required and must not be empty")
	// ErrNoItems indicates an empty work item batch.
	ErrNoItems = errors.New("items parameter is required and must not be empty")
)

// EventInput is one state change in a work item's history.
type EventInput struct {
	Timestamp string `json:"timestamp" jsonschema:"state change time in RFC 3339 format"`
	State     string `json:"state"     jsonschema:"raw state name, e.g. Active or Closed"`
}

// ItemInput is the input schema for a single work item.
type ItemInput struct {
	ID             int          `json:"id"`
	Developer      string       `json:"developer,omitempty"       jsonschema:"display name used for grouping"`
	Type           string       `json:"type,omitempty"            jsonschema:"work item type, e.g. User Story or Bug"`
	EstimatedHours float64      `json:"estimated_hours,omitempty" jsonschema:"original estimate in hours; 0 falls back to the per-type default"`
	TargetDate     string       `json:"target_date,omitempty"     jsonschema:"planned delivery date in RFC 3339 format"`
	ClosedDate     string       `json:"closed_date,omitempty"     jsonschema:"actual completion date in RFC 3339 format"`
	State          string       `json:"state,omitempty"           jsonschema:"current raw state; defaults to the last event's state"`
	Events         []EventInput `json:"events"                    jsonschema:"ordered or unordered state-change history"`
}

// BreakdownInput is the input schema for the compute_time_breakdown tool.
type BreakdownInput struct {
	Events []EventInput `json:"events"        jsonschema:"state-change history to accumulate"`
	Now    string       `json:"now,omitempty" jsonschema:"boundary for open-ended segments in RFC 3339 format; defaults to the current time"`
}

// BatchInput is the input schema for the score_developers tool.
type BatchInput struct {
	Items []ItemInput `json:"items" jsonschema:"work items to score and aggregate"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func (s *Server) handleTimeBreakdown(ctx context.Context, _ *mcpsdk.CallToolRequest, input BreakdownInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Events) == 0 {
		return errorResult(ErrNoEvents)
	}
	events, err := s.parseEvents(input.Events)
	if err != nil {
		return errorResult(err)
	}

	now := s.opts.Now
	if input.Now != "" {
		now, err = time.Parse(time.RFC3339, input.Now)
		if err != nil {
			return errorResult(fmt.Errorf("now: %w", err))
		}
	}
	if now.IsZero() {
		now = time.Now()
	}

	sched, err := s.cfg.Schedule.Normalize()
	if err != nil {
		return errorResult(err)
	}
	breakdown, err := timeline.Accumulate(events, sched, now)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(breakdown)
}

func (s *Server) handleScoreItem(ctx context.Context, _ *mcpsdk.CallToolRequest, input ItemInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Events) == 0 {
		return errorResult(ErrNoEvents)
	}
	item, err := s.buildItem(input)
	if err != nil {
		return errorResult(err)
	}

	res, err := engine.Run(ctx, []engine.Item{item}, s.cfg, s.opts)
	if err != nil {
		return errorResult(err)
	}
	if len(res.Items) == 0 {
		if len(res.Warnings) > 0 {
			return errorResult(res.Warnings[0])
		}
		return errorResult(fmt.Errorf("work item %d produced no metrics", input.ID))
	}
	return jsonResult(res.Items[0])
}

func (s *Server) handleScoreDevelopers(ctx context.Context, _ *mcpsdk.CallToolRequest, input BatchInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Items) == 0 {
		return errorResult(ErrNoItems)
	}
	items := make([]engine.Item, 0, len(input.Items))
	for _, in := range input.Items {
		item, err := s.buildItem(in)
		if err != nil {
			return errorResult(err)
		}
		items = append(items, item)
	}

	res, err := engine.Run(ctx, items, s.cfg, s.opts)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) parseEvents(inputs []EventInput) ([]timeline.StateEvent, error) {
	events := make([]timeline.StateEvent, 0, len(inputs))
	for i, in := range inputs {
		ts, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("events[%d].timestamp: %w", i, err)
		}
		events = append(events, timeline.StateEvent{
			Timestamp: ts,
			RawState:  in.State,
			Category:  s.cfg.Mapping.Categorize(in.State),
		})
	}
	return events, nil
}

func (s *Server) buildItem(input ItemInput) (engine.Item, error) {
	events, err := s.parseEvents(input.Events)
	if err != nil {
		return engine.Item{}, fmt.Errorf("item %d: %w", input.ID, err)
	}

	rawState := input.State
	if rawState == "" && len(input.Events) > 0 {
		rawState = input.Events[len(input.Events)-1].State
	}

	est := input.EstimatedHours
	if est <= 0 {
		est = s.cfg.Scoring.EstimateFor(input.Type)
	}

	item := engine.Item{
		ID:             input.ID,
		Developer:      input.Developer,
		Type:           input.Type,
		RawState:       rawState,
		EstimatedHours: est,
		Events:         events,
	}
	if input.TargetDate != "" {
		t, err := time.Parse(time.RFC3339, input.TargetDate)
		if err != nil {
			return engine.Item{}, fmt.Errorf("item %d: target_date: %w", input.ID, err)
		}
		item.TargetDate = &t
	}
	if input.ClosedDate != "" {
		t, err := time.Parse(time.RFC3339, input.ClosedDate)
		if err != nil {
			return engine.Item{}, fmt.Errorf("item %d: closed_date: %w", input.ID, err)
		}
		item.ClosedDate = &t
	}
	return item, nil
}
