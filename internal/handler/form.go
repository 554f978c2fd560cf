package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

// FormHandler serves the operator-facing form lifecycle: create with
// immediate provisioning, read, update with a targeting-change gate,
// archive, holdout policy, and the status sweep.
type FormHandler struct {
	Forms       *repository.FormRepo
	Productions *repository.ProductionRepo
	Instances   *repository.InstanceRepo
	Holdouts    *repository.HoldoutRepo
	Prov        *signup.Provisioner
	Resizer     *signup.Resizer
	Reconciler  *signup.Reconciler
	Notify      CancelNotifier
}

func NewFormHandler(forms *repository.FormRepo, productions *repository.ProductionRepo,
	instances *repository.InstanceRepo, holdouts *repository.HoldoutRepo,
	prov *signup.Provisioner, resizer *signup.Resizer, reconciler *signup.Reconciler,
	notify CancelNotifier) *FormHandler {
	if forms == nil || productions == nil || instances == nil || holdouts == nil ||
		prov == nil || resizer == nil || reconciler == nil {
		panic("nil dependency passed to NewFormHandler")
	}
	return &FormHandler{
		Forms: forms, Productions: productions, Instances: instances, Holdouts: holdouts,
		Prov: prov, Resizer: resizer, Reconciler: reconciler, Notify: notify,
	}
}

// ----- DTOs -----

type formReq struct {
	ProductionID     uint64     `json:"production_id"`
	Name             string     `json:"name"`
	Scope            string     `json:"scope"`
	IsActive         *bool      `json:"is_active"`
	EventID          *uint64    `json:"event_id"`
	GenerationMode   string     `json:"generation_mode"`
	SlotCount        uint32     `json:"slot_count"`
	SlotCapacity     uint32     `json:"slot_capacity"`
	SlotNames        string     `json:"slot_names"`
	SlotStartTime    string     `json:"slot_start_time"`
	SlotIntervalMin  uint32     `json:"slot_interval_min"`
	ScheduleMode     string     `json:"schedule_mode"`
	OpensDaysBefore  uint32     `json:"opens_days_before"`
	OpensHoursBefore uint32     `json:"opens_hours_before"`
	OpensMinsBefore  uint32     `json:"opens_mins_before"`
	ClosesMode       string     `json:"closes_mode"`
	CloseOffsetValue *int32     `json:"close_offset_value"`
	CloseOffsetUnit  string     `json:"close_offset_unit"`
	EditCutoffHours  *uint32    `json:"edit_cutoff_hours"`
	EventMatching    string     `json:"event_matching"`
	EventTypeFilter  string     `json:"event_type_filter"`
	ManualEventIDs   string     `json:"manual_event_ids"`
	OpensAt          *time.Time `json:"opens_at"`
	ClosesAt         *time.Time `json:"closes_at"`
}

type formResp struct {
	ID             uint64  `json:"id"`
	ProductionID   uint64  `json:"production_id"`
	Name           string  `json:"name"`
	Scope          string  `json:"scope"`
	IsActive       bool    `json:"is_active"`
	EventID        *uint64 `json:"event_id,omitempty"`
	GenerationMode string  `json:"generation_mode"`
}

type instancePart struct {
	ID           uint64     `json:"id"`
	EventID      *uint64    `json:"event_id,omitempty"`
	OpensAt      *time.Time `json:"opens_at,omitempty"`
	ClosesAt     *time.Time `json:"closes_at,omitempty"`
	EditCutoffAt *time.Time `json:"edit_cutoff_at,omitempty"`
	Status       string     `json:"status"`
}

// applyTo copies the request onto a form, parsing the closed enums.
// Unknown enum values are rejected rather than defaulted.
func (req formReq) applyTo(f *model.Form) error {
	scope, err := model.ParseFormScope(req.Scope)
	if err != nil {
		return err
	}
	mode, err := model.ParseGenerationMode(req.GenerationMode)
	if err != nil {
		return err
	}
	f.Name = strings.TrimSpace(req.Name)
	f.Scope = scope
	f.IsActive = req.IsActive == nil || *req.IsActive
	f.EventID = req.EventID
	f.GenerationMode = mode
	f.SlotCount = req.SlotCount
	f.SlotCapacity = req.SlotCapacity
	f.SlotNames = req.SlotNames
	f.SlotStartTime = req.SlotStartTime
	f.SlotIntervalMin = req.SlotIntervalMin
	f.ScheduleMode = model.ScheduleMode(req.ScheduleMode)
	if f.ScheduleMode == "" {
		f.ScheduleMode = model.ScheduleRelative
	}
	f.OpensDaysBefore = req.OpensDaysBefore
	f.OpensHoursBefore = req.OpensHoursBefore
	f.OpensMinsBefore = req.OpensMinsBefore
	f.ClosesMode = model.ClosesMode(req.ClosesMode)
	if f.ClosesMode == "" {
		f.ClosesMode = model.CloseAtEventStart
	}
	f.CloseOffsetValue = req.CloseOffsetValue
	if req.CloseOffsetUnit != "" {
		unit, err := model.ParseCloseOffsetUnit(req.CloseOffsetUnit)
		if err != nil {
			return err
		}
		f.CloseOffsetUnit = unit
	}
	f.EditCutoffHours = req.EditCutoffHours
	f.EventMatching = model.EventMatching(req.EventMatching)
	if f.EventMatching == "" {
		f.EventMatching = model.MatchAll
	}
	f.EventTypeFilter = req.EventTypeFilter
	f.ManualEventIDs = req.ManualEventIDs
	f.OpensAt = req.OpensAt
	f.ClosesAt = req.ClosesAt
	return nil
}

// Create persists a form and provisions its instances right away.
// Per-event provisioning failures do not fail the request; they are
// reported alongside the created form so the operator can retry.
func (h *FormHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req formReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || req.ProductionID == 0 {
		return jsonError(c, http.StatusBadRequest, "name and production_id required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Productions.GetByID(ctx, req.ProductionID)
	if err != nil {
		return repoError(c, err)
	}
	if p.OwnerID != uid {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}

	f := &model.Form{ProductionID: req.ProductionID}
	if err := req.applyTo(f); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Forms.Create(ctx, f); err != nil {
		return repoError(c, err)
	}

	created, provErrs := h.Prov.ProvisionAll(ctx, *f)
	return c.JSON(http.StatusCreated, echo.Map{
		"form":               toFormResp(*f),
		"instances_created":  created,
		"provision_failures": errStrings(provErrs),
	})
}

// Get returns a form with its instances in event order.
func (h *FormHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	instances, err := h.Instances.ListByForm(ctx, f.ID)
	if err != nil {
		return repoError(c, err)
	}
	parts := make([]instancePart, 0, len(instances))
	for _, inst := range instances {
		parts = append(parts, toInstancePart(inst))
	}
	return c.JSON(http.StatusOK, echo.Map{"form": toFormResp(*f), "instances": parts})
}

// List returns all live forms of a production.
func (h *FormHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	productionID := pathID(c, "id")
	p, err := h.Productions.GetByID(ctx, productionID)
	if err != nil {
		return repoError(c, err)
	}
	if p.OwnerID != uid {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}
	forms, err := h.Forms.ListByProduction(ctx, productionID)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]formResp, 0, len(forms))
	for _, f := range forms {
		out = append(out, toFormResp(f))
	}
	return c.JSON(http.StatusOK, echo.Map{"forms": out})
}

// Update rewrites a form's configuration. When the new targeting rule
// would change which events are provisioned, the update is refused and
// the operator must run the event-changes flow, which shows the blast
// radius before committing. Timing and slot template changes propagate
// to live instances immediately.
func (h *FormHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req formReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}

	pending := *f
	if err := req.applyTo(&pending); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	// Scope changes re-provision from scratch; that is an archive+create,
	// not an update.
	if pending.Scope != f.Scope {
		return jsonError(c, http.StatusConflict, "scope cannot change; archive and create a new form")
	}

	changed, err := h.Reconciler.WouldChange(ctx, pending)
	if err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}
	if changed {
		return jsonError(c, http.StatusConflict, "targeting changed; review via the event-changes endpoint")
	}

	if err := h.Forms.Update(ctx, &pending); err != nil {
		return repoError(c, err)
	}
	if err := h.Prov.RecomputeTiming(ctx, pending); err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}

	policy := resizePolicyParam(c)
	res, err := h.Resizer.ApplyAll(ctx, pending, policy)
	if err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}
	h.Notify.NotifyCancelled(c.Request().Context(), pending, 0, reasonSlotRemovedLabel, res.Cancelled)

	return c.JSON(http.StatusOK, echo.Map{
		"form":       toFormResp(pending),
		"updated":    res.Updated,
		"created":    res.Created,
		"removed":    res.Removed,
		"reassigned": res.Reassigned,
		"cancelled":  len(res.Cancelled),
	})
}

// Archive soft-deletes a form. Instances and their history stay.
func (h *FormHandler) Archive(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	if err := h.Forms.Archive(ctx, f.ID); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type holdoutReq struct {
	IntervalN uint32 `json:"interval_n"`
	Reason    string `json:"reason"`
}

// PutHoldout installs or replaces the form's holdout policy and pushes
// it onto every live instance through a resize.
func (h *FormHandler) PutHoldout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req holdoutReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	if req.IntervalN < 2 {
		return jsonError(c, http.StatusBadRequest, "interval_n must be at least 2")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	if err := h.Holdouts.Upsert(ctx, &model.Holdout{FormID: f.ID, IntervalN: req.IntervalN, Reason: req.Reason}); err != nil {
		return repoError(c, err)
	}
	res, err := h.Resizer.ApplyAll(ctx, *f, resizePolicyParam(c))
	if err != nil {
		return repoError(c, err)
	}
	h.Notify.NotifyCancelled(c.Request().Context(), *f, 0, reasonSlotRemovedLabel, res.Cancelled)
	return c.JSON(http.StatusOK, echo.Map{"updated": res.Updated, "reassigned": res.Reassigned, "cancelled": len(res.Cancelled)})
}

// DeleteHoldout removes the policy and releases held slots on the next
// resize pass.
func (h *FormHandler) DeleteHoldout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	if err := h.Holdouts.Delete(ctx, f.ID); err != nil {
		return repoError(c, err)
	}
	if _, err := h.Resizer.ApplyAll(ctx, *f, signup.ResizeReassign); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Sweep promotes INITIALIZING and UPDATING instances whose slots are in
// place, and rolls SCHEDULED/OPEN instances across their window
// boundaries. Meant to be hit by a cron or ops runbook.
func (h *FormHandler) Sweep(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	promoted, err := h.Prov.PromoteStatuses(ctx, *f, time.Now().UTC())
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"promoted": promoted})
}

// ----- shared helpers -----

const reasonSlotRemovedLabel = "slot removed"

func toFormResp(f model.Form) formResp {
	return formResp{
		ID:             f.ID,
		ProductionID:   f.ProductionID,
		Name:           f.Name,
		Scope:          string(f.Scope),
		IsActive:       f.IsActive,
		EventID:        f.EventID,
		GenerationMode: string(f.GenerationMode),
	}
}

func toInstancePart(inst model.Instance) instancePart {
	return instancePart{
		ID:           inst.ID,
		EventID:      inst.EventID,
		OpensAt:      inst.OpensAt,
		ClosesAt:     inst.ClosesAt,
		EditCutoffAt: inst.EditCutoffAt,
		Status:       string(inst.Status),
	}
}

func errStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

// resizePolicyParam reads the ?policy= query parameter, defaulting to
// reassign.
func resizePolicyParam(c echo.Context) signup.ResizePolicy {
	if c.QueryParam("policy") == string(signup.ResizeCancel) {
		return signup.ResizeCancel
	}
	return signup.ResizeReassign
}
