package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"swiftresponse/internal/models"
)

type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeInserted Outcome = "inserted"
	OutcomeMerged   Outcome = "merged"
	OutcomeRemoved  Outcome = "removed"
	OutcomeClosed   Outcome = "closed"
)

// Result is what one event did to the view.
type Result struct {
	Outcome Outcome
	Record  *models.EmergencyRecord
	Alert   bool
}

// Reflector folds change events into the local state of one view.
type Reflector struct {
	view   View
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*models.EmergencyRecord
	closed  bool
}

func NewReflector(view View, recencyWindow time.Duration) *Reflector {
	return &Reflector{
		view:    view,
		window:  recencyWindow,
		now:     time.Now,
		records: make(map[string]*models.EmergencyRecord),
	}
}

func (r *Reflector) View() View {
	return r.view
}

// Seed loads existing records without raising alerts.
func (r *Reflector) Seed(records []*models.EmergencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, ok := r.records[rec.ID]; ok {
			continue
		}
		cp := *rec
		r.records[rec.ID] = &cp
	}
}

func (r *Reflector) Apply(event models.ChangeEvent) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || event.Table != r.view.Table || event.RecordID == "" {
		return Result{Outcome: OutcomeIgnored}
	}

	matches := r.view.Filter.Matches(event)
	tracked, ok := r.records[event.RecordID]
	if !ok {
		return r.admit(event, matches)
	}

	merged, err := mergeEvent(tracked, event)
	if err != nil {
		return Result{Outcome: OutcomeIgnored}
	}

	if r.view.Closes != nil && r.view.Closes(merged) {
		r.closed = true
		r.records[merged.ID] = merged
		return Result{Outcome: OutcomeClosed, Record: merged}
	}
	if !matches || (r.view.Keep != nil && !r.view.Keep(merged)) {
		delete(r.records, merged.ID)
		return Result{Outcome: OutcomeRemoved, Record: merged}
	}

	r.records[merged.ID] = merged
	return Result{Outcome: OutcomeMerged, Record: merged}
}

// admit handles an event for an id that is not tracked yet. Without the
// full row there is nothing to show, so such events are dropped.
func (r *Reflector) admit(event models.ChangeEvent, matches bool) Result {
	if !matches || event.Record == nil {
		return Result{Outcome: OutcomeIgnored}
	}
	rec := *event.Record
	if rec.ID == "" {
		rec.ID = event.RecordID
	}
	if r.view.Keep != nil && !r.view.Keep(&rec) {
		return Result{Outcome: OutcomeIgnored}
	}

	actionable := r.view.Actionable != nil && r.view.Actionable(&rec)
	if r.view.Actionable != nil && !actionable {
		return Result{Outcome: OutcomeIgnored}
	}
	if r.view.Closes != nil && r.view.Closes(&rec) {
		r.closed = true
		return Result{Outcome: OutcomeClosed, Record: &rec}
	}

	r.records[rec.ID] = &rec
	return Result{
		Outcome: OutcomeInserted,
		Record:  &rec,
		Alert:   actionable && r.isRecent(rec.CreatedAt),
	}
}

func (r *Reflector) isRecent(createdAt time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return r.now().Sub(createdAt) <= r.window
}

// Records returns the tracked records, newest first.
func (r *Reflector) Records() []*models.EmergencyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.EmergencyRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *Reflector) Get(id string) (*models.EmergencyRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

func (r *Reflector) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Reflector) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// mergeEvent overlays the written fields on the tracked record. Columns
// absent from the event keep their tracked value.
func mergeEvent(tracked *models.EmergencyRecord, event models.ChangeEvent) (*models.EmergencyRecord, error) {
	if len(event.Fields) == 0 {
		if event.Record == nil {
			cp := *tracked
			return &cp, nil
		}
		cp := *event.Record
		return &cp, nil
	}

	raw, err := json.Marshal(tracked)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracked record: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tracked record: %w", err)
	}
	for k, v := range event.Fields {
		if k == models.FieldID {
			continue
		}
		doc[k] = v
	}
	if raw, err = json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("failed to encode merged record: %w", err)
	}
	var merged models.EmergencyRecord
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("failed to apply change: %w", err)
	}
	return &merged, nil
}
