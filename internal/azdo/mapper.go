package azdo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"devkpi/internal/engine"
	"devkpi/internal/scoring"
	"devkpi/internal/timeline"
)

// BuildItem combines a work item's current fields with its updates feed into
// a scoring input. The state history is reconstructed from every update that
// changed System.State, stamped with the change date of that revision; the
// revision date is a fallback for old server versions that omit it.
func BuildItem(wi WorkItemDTO, updates []UpdateDTO, mapping timeline.Mapping, scoreCfg scoring.Config) (engine.Item, error) {
	item := engine.Item{
		ID:             wi.ID,
		Title:          wi.StringField(FieldTitle),
		Developer:      wi.AssignedTo(),
		Project:        wi.StringField(FieldTeamProject),
		Type:           wi.StringField(FieldWorkItemType),
		RawState:       wi.StringField(FieldState),
		EstimatedHours: wi.FloatField(FieldOriginalEstimate),
		TargetDate:     wi.TimeField(FieldTargetDate),
		ClosedDate:     wi.TimeField(FieldClosedDate),
	}

	if item.EstimatedHours <= 0 {
		item.EstimatedHours = scoreCfg.EstimateFor(item.Type)
	}

	for _, u := range updates {
		stateChange, ok := u.Fields[FieldState]
		if !ok {
			continue
		}
		newState := stateChange.NewString()
		if newState == "" {
			continue
		}

		// The final revision's revisedDate is a far-future sentinel, so the
		// changed date field is authoritative when present.
		stamp := ""
		if cd, ok := u.Fields[FieldChangedDate]; ok {
			stamp = cd.NewString()
		}
		if stamp == "" {
			stamp = u.RevisedDate
		}
		ts, err := ParseTime(stamp)
		if err != nil {
			return engine.Item{}, fmt.Errorf("work item %d update %d: %w", wi.ID, u.ID, err)
		}

		item.Events = append(item.Events, timeline.StateEvent{
			Timestamp: ts,
			RawState:  newState,
			Category:  mapping.Categorize(newState),
		})
	}

	// Items created before state tracking, or never transitioned, still carry
	// a current state worth one event at creation time.
	if len(item.Events) == 0 && item.RawState != "" {
		if created := wi.TimeField(FieldCreatedDate); created != nil {
			item.Events = append(item.Events, timeline.StateEvent{
				Timestamp: *created,
				RawState:  item.RawState,
				Category:  mapping.Categorize(item.RawState),
			})
		}
	}

	return item, nil
}

// Fetcher pulls complete scoring inputs from Azure DevOps: a WIQL query for
// ids, a batch read of fields, then the updates feed per item.
type Fetcher struct {
	Client  Client
	Mapping timeline.Mapping
	Scoring scoring.Config
}

// Fetch resolves a WIQL query into ready-to-score items. Work items whose
// history cannot be parsed are skipped with a warning rather than failing
// the batch.
func (f Fetcher) Fetch(ctx context.Context, wiql string) ([]engine.Item, error) {
	ids, err := f.Client.QueryWorkItemIDs(ctx, wiql)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	workItems, err := f.Client.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]engine.Item, 0, len(workItems))
	for _, wi := range workItems {
		updates, err := f.Client.GetUpdates(ctx, wi.ID)
		if err != nil {
			return nil, fmt.Errorf("work item %d updates: %w", wi.ID, err)
		}
		item, err := BuildItem(wi, updates, f.Mapping, f.Scoring)
		if err != nil {
			log.Warn().Err(err).Int("id", wi.ID).Msg("Skipping work item with malformed history")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
