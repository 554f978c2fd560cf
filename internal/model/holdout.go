package model

import "time"

// Holdout is a per-form policy of the shape "every Nth slot is held
// back". It is applied to every newly generated slot set and re-applied
// after a resize. At most one holdout exists per form.
//
// Fields:
//  ID        – primary key identifier.
//  FormID    – form this policy belongs to.
//  IntervalN – every slot at an exact multiple of this position is held.
//  Reason    – explanation surfaced on the held slots.
//  CreatedAt – creation timestamp.
type Holdout struct {
	ID        uint64    // holdouts.id
	FormID    uint64    // holdouts.form_id
	IntervalN uint32    // holdouts.interval_n
	Reason    string    // holdouts.reason
	CreatedAt time.Time // holdouts.created_at
}
