package signup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

// reasonEventRemoved is the cancel reason stamped on registrations of
// an instance whose event stopped matching the form.
const reasonEventRemoved = "event removed from signup"

// RemovalPolicy selects what happens to in-flight registrations on an
// instance that stops matching.
type RemovalPolicy string

const (
	// RemovalCancel cancels the registrations and deletes the instance
	// with its slots.
	RemovalCancel RemovalPolicy = "cancel"
	// RemovalKeep marks the instance canceled but leaves slots and
	// registrations in place as history.
	RemovalKeep RemovalPolicy = "keep"
)

// RemovalImpact describes one instance the reconciler would remove and
// every active registration that removal touches, for operator review
// before committing.
type RemovalImpact struct {
	Instance  model.Instance
	EventID   uint64
	EventName string
	Affected  []model.Registration
}

// AnalysisReport is the immutable result of comparing a form's
// targeting rule against its provisioned instances.
type AnalysisReport struct {
	ToAdd    []model.Event
	Removals []RemovalImpact
}

// HasChanges reports whether applying would alter the matched set.
func (r AnalysisReport) HasChanges() bool {
	return len(r.ToAdd) > 0 || len(r.Removals) > 0
}

// AffectedRegistrations counts registrations across all removals.
func (r AnalysisReport) AffectedRegistrations() int {
	n := 0
	for _, imp := range r.Removals {
		n += len(imp.Affected)
	}
	return n
}

// ApplyResult summarizes a committed reconciliation.
type ApplyResult struct {
	Created   int
	Removed   int
	Cancelled []model.Registration
}

// Reconciler keeps a repeated form's instances in step with the events
// its targeting rule matches. Analyze is read-only; Apply commits the
// whole diff in a single transaction, unlike the provisioner's own
// per-event error tolerance: a user-triggered apply must never leave a
// half-applied view of which events the form covers.
type Reconciler struct {
	db        *sql.DB
	events    *repository.EventRepo
	instances *repository.InstanceRepo
	slots     *repository.SlotRepo
	regs      *repository.RegistrationRepo
	prov      *Provisioner
}

// NewReconciler constructs a Reconciler. All dependencies must be
// non-nil.
func NewReconciler(db *sql.DB, events *repository.EventRepo, instances *repository.InstanceRepo,
	slots *repository.SlotRepo, regs *repository.RegistrationRepo, prov *Provisioner) *Reconciler {
	if db == nil || events == nil || instances == nil || slots == nil || regs == nil || prov == nil {
		panic("nil dependency passed to NewReconciler")
	}
	return &Reconciler{db: db, events: events, instances: instances, slots: slots, regs: regs, prov: prov}
}

// Analyze computes the add/remove diff for the form's current settings
// and surfaces every registration a removal would touch. Forms that are
// not event-repeated have nothing to reconcile and get an empty report.
func (c *Reconciler) Analyze(ctx context.Context, f model.Form) (*AnalysisReport, error) {
	diff, err := c.diff(ctx, f)
	if err != nil {
		return nil, err
	}

	report := &AnalysisReport{ToAdd: diff.ToAdd}
	if len(diff.ToRemove) == 0 {
		return report, nil
	}

	names, err := c.eventNames(ctx, diff.ToRemove)
	if err != nil {
		return nil, err
	}
	for _, inst := range diff.ToRemove {
		affected, err := c.regs.ListActiveByInstance(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		report.Removals = append(report.Removals, RemovalImpact{
			Instance:  inst,
			EventID:   *inst.EventID,
			EventName: names[*inst.EventID],
			Affected:  affected,
		})
	}
	return report, nil
}

// WouldChange reports whether the given (possibly unsaved) settings
// would alter the form's matched-event set. Used to gate a
// confirmation step before committing a settings edit.
func (c *Reconciler) WouldChange(ctx context.Context, pending model.Form) (bool, error) {
	diff, err := c.diff(ctx, pending)
	if err != nil {
		return false, err
	}
	return diff.HasChanges(), nil
}

// Apply commits the diff: removals first, then additions, all in one
// transaction. Any provisioning failure rolls the whole apply back.
func (c *Reconciler) Apply(ctx context.Context, f model.Form, policy RemovalPolicy) (*ApplyResult, error) {
	diff, err := c.diff(ctx, f)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result := &ApplyResult{}
	for _, inst := range diff.ToRemove {
		cancelled, err := c.removeInstanceTx(ctx, tx, inst, policy)
		if err != nil {
			return nil, fmt.Errorf("remove instance %d: %w", inst.ID, err)
		}
		result.Cancelled = append(result.Cancelled, cancelled...)
		result.Removed++
	}
	for i := range diff.ToAdd {
		ev := diff.ToAdd[i]
		_, created, err := c.prov.ProvisionTx(ctx, tx, f, &ev)
		if err != nil {
			return nil, fmt.Errorf("provision event %d (%s): %w", ev.ID, ev.Name, err)
		}
		if created {
			result.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return result, nil
}

func (c *Reconciler) removeInstanceTx(ctx context.Context, tx *sql.Tx, inst model.Instance, policy RemovalPolicy) ([]model.Registration, error) {
	if policy == RemovalKeep {
		// Historical removal: the instance drops out of matching but its
		// registrations stay untouched.
		return nil, c.instances.MarkStatusTx(ctx, tx, inst.ID, model.InstanceCanceled)
	}

	slots, err := c.slots.ListByInstanceTx(ctx, tx, inst.ID)
	if err != nil {
		return nil, err
	}
	slotIDs := make([]uint64, 0, len(slots))
	for _, s := range slots {
		slotIDs = append(slotIDs, s.ID)
	}
	affected, err := c.regs.ListActiveBySlotIDsTx(ctx, tx, slotIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(affected))
	for _, reg := range affected {
		ids = append(ids, reg.ID)
	}
	if err := c.regs.CancelByIDsTx(ctx, tx, ids, reasonEventRemoved); err != nil {
		return nil, err
	}
	if err := c.slots.DeleteByInstanceTx(ctx, tx, inst.ID); err != nil {
		return nil, err
	}
	if err := c.instances.DeleteTx(ctx, tx, inst.ID); err != nil {
		return nil, err
	}
	return affected, nil
}

func (c *Reconciler) diff(ctx context.Context, f model.Form) (EventDiff, error) {
	if f.Scope != model.ScopeRepeated {
		return EventDiff{}, nil
	}
	now := time.Now().UTC()
	events, err := c.events.ListUpcoming(ctx, f.ProductionID, now)
	if err != nil {
		return EventDiff{}, err
	}
	instances, err := c.instances.ListByForm(ctx, f.ID)
	if err != nil {
		return EventDiff{}, err
	}
	return DiffEvents(MatchEvents(f, events, now), instances), nil
}

func (c *Reconciler) eventNames(ctx context.Context, instances []model.Instance) (map[uint64]string, error) {
	var ids []uint64
	for _, inst := range instances {
		if inst.EventID != nil {
			ids = append(ids, *inst.EventID)
		}
	}
	events, err := c.events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint64]string, len(events))
	for _, ev := range events {
		names[ev.ID] = ev.Name
	}
	return names, nil
}
