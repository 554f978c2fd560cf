package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

// Provisioner creates and maintains instances of a form: one per
// matching event for repeated forms, one bound instance for
// single_event forms, one event-less instance for shared pools. Each
// instance is provisioned in its own transaction so one failing event
// never aborts its siblings.
type Provisioner struct {
	db        *sql.DB
	events    *repository.EventRepo
	instances *repository.InstanceRepo
	slots     *repository.SlotRepo
	regs      *repository.RegistrationRepo
	holdouts  *repository.HoldoutRepo
}

// NewProvisioner constructs a Provisioner. All dependencies must be
// non-nil.
func NewProvisioner(db *sql.DB, events *repository.EventRepo, instances *repository.InstanceRepo,
	slots *repository.SlotRepo, regs *repository.RegistrationRepo, holdouts *repository.HoldoutRepo) *Provisioner {
	if db == nil || events == nil || instances == nil || slots == nil || regs == nil || holdouts == nil {
		panic("nil dependency passed to NewProvisioner")
	}
	return &Provisioner{db: db, events: events, instances: instances, slots: slots, regs: regs, holdouts: holdouts}
}

// ProvisionAll ensures every instance the form's scope calls for.
// Re-invoking is a no-op for already-provisioned targets. Errors are
// collected per event and siblings proceed; the returned count is the
// number of instances actually created.
func (p *Provisioner) ProvisionAll(ctx context.Context, f model.Form) (int, []error) {
	now := time.Now().UTC()

	switch f.Scope {
	case model.ScopeRepeated:
		events, err := p.events.ListUpcoming(ctx, f.ProductionID, now)
		if err != nil {
			return 0, []error{err}
		}
		matching := MatchEvents(f, events, now)
		created := 0
		var errs []error
		for i := range matching {
			ev := matching[i]
			ok, err := p.provisionOne(ctx, f, &ev)
			if err != nil {
				errs = append(errs, fmt.Errorf("event %d (%s): %w", ev.ID, ev.Name, err))
				continue
			}
			if ok {
				created++
			}
		}
		return created, errs

	case model.ScopeSingleEvent:
		if f.EventID == nil {
			return 0, []error{fmt.Errorf("%w: single_event form has no event configured", ErrBadConfig)}
		}
		ev, err := p.events.GetByID(ctx, *f.EventID)
		if err != nil {
			return 0, []error{fmt.Errorf("event %d: %w", *f.EventID, err)}
		}
		ok, err := p.provisionOne(ctx, f, ev)
		if err != nil {
			return 0, []error{fmt.Errorf("event %d (%s): %w", ev.ID, ev.Name, err)}
		}
		if ok {
			return 1, nil
		}
		return 0, nil

	case model.ScopeSharedPool:
		ok, err := p.provisionOne(ctx, f, nil)
		if err != nil {
			return 0, []error{err}
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	}
	return 0, []error{fmt.Errorf("%w: unknown scope %q", ErrBadConfig, f.Scope)}
}

// provisionOne runs ProvisionTx in its own transaction.
func (p *Provisioner) provisionOne(ctx context.Context, f model.Form, ev *model.Event) (created bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	_, created, err = p.ProvisionTx(ctx, tx, f, ev)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return created, nil
}

// ProvisionTx ensures exactly one instance of the form bound to the
// given event (nil for the shared pool) inside the caller's
// transaction. A live existing instance is returned unchanged; a
// CANCELED one is revived; a new one starts INITIALIZING with its
// timing computed and its slot set generated synchronously. The sweep
// promotes it once generation is visible.
func (p *Provisioner) ProvisionTx(ctx context.Context, tx *sql.Tx, f model.Form, ev *model.Event) (*model.Instance, bool, error) {
	var eventID *uint64
	var eventStart *time.Time
	if ev != nil {
		id := ev.ID
		eventID = &id
		start := ev.StartsAt
		eventStart = &start
	}

	existing, err := p.instances.GetByFormAndEventTx(ctx, tx, f.ID, eventID)
	if err == nil {
		if existing.Status != model.InstanceCanceled {
			return existing, false, nil
		}
		// A keep-policy removal left this row CANCELED. The event
		// matches again, so revive the instance in place: recompute the
		// window, resync slots against the current template, and let
		// the sweep promote it like any fresh instance.
		timing, err := ComputeTiming(f, eventStart)
		if err != nil {
			return nil, false, err
		}
		if err := p.instances.UpdateTimingTx(ctx, tx, existing.ID,
			timing.OpensAt, timing.ClosesAt, timing.EditCutoffAt, model.InstanceInitializing); err != nil {
			return nil, false, err
		}
		holdout, err := p.holdouts.GetByForm(ctx, f.ID)
		if err != nil {
			return nil, false, err
		}
		if _, err := syncSlotsTx(ctx, tx, p.slots, p.regs, f, existing.ID, holdout, ResizeReassign); err != nil {
			return nil, false, err
		}
		existing.OpensAt = timing.OpensAt
		existing.ClosesAt = timing.ClosesAt
		existing.EditCutoffAt = timing.EditCutoffAt
		existing.Status = model.InstanceInitializing
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	timing, err := ComputeTiming(f, eventStart)
	if err != nil {
		return nil, false, err
	}

	inst := &model.Instance{
		FormID:       f.ID,
		EventID:      eventID,
		OpensAt:      timing.OpensAt,
		ClosesAt:     timing.ClosesAt,
		EditCutoffAt: timing.EditCutoffAt,
		// New instances always start initializing, whatever the computed
		// window says; the sweep promotes them.
		Status: model.InstanceInitializing,
	}
	if err := p.instances.CreateTx(ctx, tx, inst); err != nil {
		return nil, false, err
	}

	holdout, err := p.holdouts.GetByForm(ctx, f.ID)
	if err != nil {
		return nil, false, err
	}
	if _, err := syncSlotsTx(ctx, tx, p.slots, p.regs, f, inst.ID, holdout, ResizeReassign); err != nil {
		return nil, false, err
	}
	return inst, true, nil
}

// RecomputeTiming rewrites the computed window of every live instance
// after a settings edit and marks them UPDATING until the next sweep.
// Runs in one transaction: either every instance reflects the new
// settings or none does.
func (p *Provisioner) RecomputeTiming(ctx context.Context, f model.Form) error {
	instances, err := p.instances.ListByForm(ctx, f.ID)
	if err != nil {
		return err
	}
	starts, err := p.eventStarts(ctx, instances)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, inst := range instances {
		if inst.Status == model.InstanceCanceled {
			continue
		}
		var eventStart *time.Time
		if inst.EventID != nil {
			if s, ok := starts[*inst.EventID]; ok {
				eventStart = &s
			}
		}
		timing, err := ComputeTiming(f, eventStart)
		if err != nil {
			return err
		}
		if err := p.instances.UpdateTimingTx(ctx, tx, inst.ID,
			timing.OpensAt, timing.ClosesAt, timing.EditCutoffAt, model.InstanceUpdating); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// PromoteStatuses is the periodic status-recompute pass: it moves
// INITIALIZING and UPDATING instances whose slot generation is visible
// into the window-derived raw status, and keeps SCHEDULED/OPEN/CLOSED
// in step with the clock. Returns the number of instances changed.
func (p *Provisioner) PromoteStatuses(ctx context.Context, f model.Form, now time.Time) (int, error) {
	instances, err := p.instances.ListByForm(ctx, f.ID)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, inst := range instances {
		switch inst.Status {
		case model.InstanceInitializing, model.InstanceUpdating:
			slots, err := p.slots.ListByInstance(ctx, inst.ID)
			if err != nil {
				return changed, err
			}
			if len(slots) == 0 {
				// Template not configured yet (empty named list); the
				// instance stays where it is, but bump updated_at so a
				// stuck instance still shows when the sweep last saw it.
				if err := p.instances.TouchUpdatedAt(ctx, inst.ID, now); err != nil {
					return changed, err
				}
				continue
			}
		case model.InstanceScheduled, model.InstanceOpen:
			// fall through to the window check
		default:
			continue
		}
		desired := windowStatus(inst, now)
		if desired != inst.Status {
			if err := p.instances.UpdateStatus(ctx, inst.ID, desired); err != nil {
				return changed, err
			}
			changed++
		}
	}
	return changed, nil
}

// windowStatus derives the raw status an instance should carry from
// its computed window alone.
func windowStatus(inst model.Instance, now time.Time) model.InstanceStatus {
	if inst.OpensAt != nil && inst.OpensAt.After(now) {
		return model.InstanceScheduled
	}
	if inst.ClosesAt != nil && !inst.ClosesAt.After(now) {
		return model.InstanceClosed
	}
	return model.InstanceOpen
}

func (p *Provisioner) eventStarts(ctx context.Context, instances []model.Instance) (map[uint64]time.Time, error) {
	var ids []uint64
	for _, inst := range instances {
		if inst.EventID != nil {
			ids = append(ids, *inst.EventID)
		}
	}
	events, err := p.events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	starts := make(map[uint64]time.Time, len(events))
	for _, ev := range events {
		starts[ev.ID] = ev.StartsAt
	}
	return starts, nil
}
