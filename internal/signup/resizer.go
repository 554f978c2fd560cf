package signup

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

// reasonSlotRemoved is the cancel reason stamped on registrations whose
// slot was removed by a shrink and could not be reassigned.
const reasonSlotRemoved = "slot removed"

// ResizeResult summarizes one slot synchronization.
type ResizeResult struct {
	Updated    int
	Created    int
	Removed    int
	Reassigned int
	// Cancelled holds the registrations this operation cancelled, as they
	// were before cancellation, so callers can publish notifications.
	Cancelled []model.Registration
}

// Resizer migrates an instance's slot set to the form's current
// template: updates kept positions, appends growth, removes trailing
// excess, and moves or cancels the displaced registrations. Every
// apply is one transaction.
type Resizer struct {
	db        *sql.DB
	instances *repository.InstanceRepo
	slots     *repository.SlotRepo
	regs      *repository.RegistrationRepo
	holdouts  *repository.HoldoutRepo
}

// NewResizer constructs a Resizer. All dependencies must be non-nil.
func NewResizer(db *sql.DB, instances *repository.InstanceRepo, slots *repository.SlotRepo,
	regs *repository.RegistrationRepo, holdouts *repository.HoldoutRepo) *Resizer {
	if db == nil || instances == nil || slots == nil || regs == nil || holdouts == nil {
		panic("nil dependency passed to NewResizer")
	}
	return &Resizer{db: db, instances: instances, slots: slots, regs: regs, holdouts: holdouts}
}

// Apply regenerates the slot set of one instance of the form. The
// instance must belong to the form. Slot updates, creations, removals
// and registration mutations commit or roll back together.
func (r *Resizer) Apply(ctx context.Context, f model.Form, instanceID uint64, policy ResizePolicy) (*ResizeResult, error) {
	inst, err := r.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.FormID != f.ID {
		return nil, repository.ErrForbidden
	}
	holdout, err := r.holdouts.GetByForm(ctx, f.ID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := syncSlotsTx(ctx, tx, r.slots, r.regs, f, instanceID, holdout, policy)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// ApplyAll resizes every non-canceled instance of the form in one
// transaction per instance, stopping at the first failure.
func (r *Resizer) ApplyAll(ctx context.Context, f model.Form, policy ResizePolicy) (*ResizeResult, error) {
	instances, err := r.instances.ListByForm(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	total := &ResizeResult{}
	for _, inst := range instances {
		if inst.Status == model.InstanceCanceled {
			continue
		}
		res, err := r.Apply(ctx, f, inst.ID, policy)
		if err != nil {
			return total, fmt.Errorf("instance %d: %w", inst.ID, err)
		}
		total.Updated += res.Updated
		total.Created += res.Created
		total.Removed += res.Removed
		total.Reassigned += res.Reassigned
		total.Cancelled = append(total.Cancelled, res.Cancelled...)
	}
	return total, nil
}

// syncSlotsTx brings one instance's persisted slots in line with the
// form's template inside the caller's transaction. Holdouts are
// re-applied on the fresh template, kept positions keep their identity
// and registrations, and registrations on removed slots are placed per
// the policy. Shared by the provisioner (fresh instance, everything is
// a create) and the resizer.
func syncSlotsTx(ctx context.Context, tx *sql.Tx, slotRepo *repository.SlotRepo, regRepo *repository.RegistrationRepo,
	f model.Form, instanceID uint64, holdout *model.Holdout, policy ResizePolicy) (*ResizeResult, error) {

	desc, err := BuildTemplate(GenerationConfigFromForm(f))
	if err != nil {
		return nil, err
	}
	desc = ApplyHoldout(desc, holdout)

	current, err := slotRepo.ListByInstanceTx(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}
	plan := PlanResize(current, desc)
	res := &ResizeResult{}
	if !plan.Changed() {
		return res, nil
	}

	for _, u := range plan.Updates {
		s := u.Slot
		s.Name = u.Desc.Name
		s.Capacity = u.Desc.Capacity
		s.IsHeld = u.Desc.Held
		s.HeldReason = u.Desc.HeldReason
		if err := slotRepo.UpdateTx(ctx, tx, s); err != nil {
			return nil, err
		}
		res.Updated++
	}

	if len(plan.Creates) > 0 {
		rows := make([]model.Slot, 0, len(plan.Creates))
		for _, d := range plan.Creates {
			rows = append(rows, model.Slot{
				InstanceID: instanceID,
				Position:   d.Position,
				Name:       d.Name,
				Capacity:   d.Capacity,
				IsHeld:     d.Held,
				HeldReason: d.HeldReason,
			})
		}
		if err := slotRepo.CreateBulkTx(ctx, tx, rows); err != nil {
			return nil, err
		}
		res.Created = len(rows)
	}

	if len(plan.Removals) > 0 {
		if err := removeSlotsTx(ctx, tx, regRepo, slotRepo, current, plan, policy, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// removeSlotsTx handles the shrink side of a plan: it relocates or
// cancels every active registration on a removed slot, then deletes
// the slots themselves.
func removeSlotsTx(ctx context.Context, tx *sql.Tx, regRepo *repository.RegistrationRepo, slotRepo *repository.SlotRepo,
	current []model.Slot, plan ResizePlan, policy ResizePolicy, res *ResizeResult) error {

	removedIDs := make([]uint64, 0, len(plan.Removals))
	for _, s := range plan.Removals {
		removedIDs = append(removedIDs, s.ID)
	}
	displaced, err := regRepo.ListActiveBySlotIDsTx(ctx, tx, removedIDs)
	if err != nil {
		return err
	}

	if len(displaced) > 0 {
		remaining, err := remainingStatesTx(ctx, tx, regRepo, keptSlots(current, plan))
		if err != nil {
			return err
		}
		moves := PlanReassignments(displaced, remaining, policy)
		var cancelIDs []uint64
		for _, m := range moves {
			if m.ToSlotID != nil {
				if err := regRepo.MoveTx(ctx, tx, m.Registration.ID, *m.ToSlotID); err != nil {
					return err
				}
				res.Reassigned++
				continue
			}
			cancelIDs = append(cancelIDs, m.Registration.ID)
			res.Cancelled = append(res.Cancelled, m.Registration)
		}
		if err := regRepo.CancelByIDsTx(ctx, tx, cancelIDs, reasonSlotRemoved); err != nil {
			return err
		}
	}

	if err := slotRepo.DeleteByIDsTx(ctx, tx, removedIDs); err != nil {
		return err
	}
	res.Removed = len(removedIDs)
	return nil
}

// keptSlots returns the surviving slots with their post-plan name,
// capacity and hold state, so reassignment sees the slot set as it
// will exist after commit.
func keptSlots(current []model.Slot, plan ResizePlan) []model.Slot {
	updated := make(map[uint64]SlotDescriptor, len(plan.Updates))
	for _, u := range plan.Updates {
		updated[u.Slot.ID] = u.Desc
	}
	removed := make(map[uint64]bool, len(plan.Removals))
	for _, s := range plan.Removals {
		removed[s.ID] = true
	}

	out := make([]model.Slot, 0, len(current)-len(removed))
	for _, s := range current {
		if removed[s.ID] {
			continue
		}
		if d, ok := updated[s.ID]; ok {
			s.Name = d.Name
			s.Capacity = d.Capacity
			s.IsHeld = d.Held
			s.HeldReason = d.HeldReason
		}
		out = append(out, s)
	}
	return out
}

func remainingStatesTx(ctx context.Context, tx *sql.Tx, regRepo *repository.RegistrationRepo, kept []model.Slot) ([]SlotState, error) {
	ids := make([]uint64, 0, len(kept))
	for _, s := range kept {
		ids = append(ids, s.ID)
	}
	counts, err := regRepo.ActiveCountsBySlotsTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	states := make([]SlotState, 0, len(kept))
	for _, s := range kept {
		states = append(states, SlotState{Slot: s, Active: counts[s.ID]})
	}
	return states, nil
}
