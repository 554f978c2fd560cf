package model

import (
	"strconv"
	"strings"
	"time"
)

// Form is a reusable signup configuration owned by a production. A form
// describes how slot inventory is generated, when the registration
// window opens and closes relative to an event, and which events it
// targets. Forms are soft-deleted (archived) rather than removed while
// registrations exist. This struct corresponds to a row in the `forms`
// table.
//
// Fields:
//  ID               – primary key identifier.
//  ProductionID     – production this form belongs to.
//  Name             – form name shown to operators.
//  Scope            – repeated, single_event or shared_pool.
//  IsActive         – inactive forms resolve to the paused status.
//  EventID          – bound event for single_event scope (nil otherwise).
//  GenerationMode   – how the slot template is built.
//  SlotCount        – slot count (numbered/time_based/open_list) or the
//                     capacity for simple_capacity.
//  SlotCapacity     – per-slot capacity for numbered/time_based modes.
//  SlotNames        – comma-separated names for the named mode.
//  SlotStartTime    – "HH:MM" start for the time_based mode.
//  SlotIntervalMin  – minutes between time_based slots.
//  ScheduleMode     – relative (computed from event) or fixed.
//  OpensDaysBefore  – relative opening offset, days component.
//  OpensHoursBefore – relative opening offset, hours component.
//  OpensMinsBefore  – relative opening offset, minutes component.
//  ClosesMode       – event_start, event_end or custom.
//  CloseOffsetValue – signed custom offset (negative means after the event).
//  CloseOffsetUnit  – hours or days; validated, never defaulted.
//  EditCutoffHours  – hours before closing after which edits are refused
//                     (nil when no cutoff is configured).
//  EventMatching    – all, event_types or manual (repeated scope only).
//  EventTypeFilter  – comma-separated type tags for event_types matching.
//  OpensAt/ClosesAt – fixed window for the fixed schedule mode and for
//                     shared_pool forms (nil means immediate / never).
//  ArchivedAt       – soft delete marker.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Form struct {
	ID               uint64          // forms.id
	ProductionID     uint64          // forms.production_id
	Name             string          // forms.name
	Scope            FormScope       // forms.scope
	IsActive         bool            // forms.is_active
	EventID          *uint64         // forms.event_id (nullable)
	GenerationMode   GenerationMode  // forms.generation_mode
	SlotCount        uint32          // forms.slot_count
	SlotCapacity     uint32          // forms.slot_capacity
	SlotNames        string          // forms.slot_names (comma separated)
	SlotStartTime    string          // forms.slot_start_time ("HH:MM")
	SlotIntervalMin  uint32          // forms.slot_interval_min
	ScheduleMode     ScheduleMode    // forms.schedule_mode
	OpensDaysBefore  uint32          // forms.opens_days_before
	OpensHoursBefore uint32          // forms.opens_hours_before
	OpensMinsBefore  uint32          // forms.opens_mins_before
	ClosesMode       ClosesMode      // forms.closes_mode
	CloseOffsetValue *int32          // forms.close_offset_value (nullable)
	CloseOffsetUnit  CloseOffsetUnit // forms.close_offset_unit
	EditCutoffHours  *uint32         // forms.edit_cutoff_hours (nullable)
	EventMatching    EventMatching   // forms.event_matching
	EventTypeFilter  string          // forms.event_type_filter (comma separated)
	ManualEventIDs   string          // forms.manual_event_ids (comma separated)
	OpensAt          *time.Time      // forms.opens_at (nullable, fixed/pool)
	ClosesAt         *time.Time      // forms.closes_at (nullable, fixed/pool)
	ArchivedAt       *time.Time      // forms.archived_at (nullable)
	CreatedAt        time.Time       // forms.created_at
	UpdatedAt        time.Time       // forms.updated_at
}

// SlotNameList splits the comma-separated SlotNames field, dropping
// empty entries. Order is preserved; order is the template order.
func (f Form) SlotNameList() []string {
	return splitCSV(f.SlotNames)
}

// EventTypeList splits the comma-separated EventTypeFilter field.
func (f Form) EventTypeList() []string {
	return splitCSV(f.EventTypeFilter)
}

// ManualEventIDList parses the comma-separated ManualEventIDs field.
// Entries that do not parse as positive integers are skipped.
func (f Form) ManualEventIDList() []uint64 {
	parts := splitCSV(f.ManualEventIDs)
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		if id, err := strconv.ParseUint(p, 10, 64); err == nil && id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
