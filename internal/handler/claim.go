package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/lock"
	"github.com/timboisvert/cocoscout-sub005/internal/middleware"
	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

// ClaimHandler serves the participant-facing claim path: browsing the
// slot grid, holding a slot while filling in details, committing the
// claim, and cancelling a registration. Holds live in Redis and are
// advisory; the database transaction in Claim is the authority.
type ClaimHandler struct {
	Forms     *repository.FormRepo
	Instances *repository.InstanceRepo
	Slots     *repository.SlotRepo
	Regs      *repository.RegistrationRepo
	Locks     *lock.SlotLock
	HoldTTL   time.Duration
}

func NewClaimHandler(forms *repository.FormRepo, instances *repository.InstanceRepo,
	slots *repository.SlotRepo, regs *repository.RegistrationRepo,
	locks *lock.SlotLock, holdTTL time.Duration) *ClaimHandler {
	if forms == nil || instances == nil || slots == nil || regs == nil || locks == nil {
		panic("nil dependency passed to NewClaimHandler")
	}
	return &ClaimHandler{Forms: forms, Instances: instances, Slots: slots, Regs: regs,
		Locks: locks, HoldTTL: holdTTL}
}

type slotPart struct {
	ID         uint64  `json:"id"`
	Position   uint32  `json:"position"`
	Name       *string `json:"name,omitempty"`
	Capacity   uint32  `json:"capacity"`
	Confirmed  uint32  `json:"confirmed"`
	IsHeld     bool    `json:"is_held"`
	HeldReason *string `json:"held_reason,omitempty"`
	Locked     bool    `json:"locked"`
	LockedByMe bool    `json:"locked_by_me"`
}

// SlotGrid returns the instance's slots with live occupancy and hold
// state, merged fresh on every request so the grid never shows stale
// holds.
func (h *ClaimHandler) SlotGrid(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	instanceID := pathID(c, "id")
	if _, err := h.Instances.GetByID(ctx, instanceID); err != nil {
		return repoError(c, err)
	}
	slots, err := h.Slots.ListByInstance(ctx, instanceID)
	if err != nil {
		return repoError(c, err)
	}
	ids := make([]uint64, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	counts, err := h.Regs.ActiveCountsBySlots(ctx, ids)
	if err != nil {
		return repoError(c, err)
	}
	holds := h.Locks.BulkStatus(ctx, ids, middleware.HolderID(c))

	out := make([]slotPart, 0, len(slots))
	for _, s := range slots {
		st := holds[s.ID]
		out = append(out, slotPart{
			ID:         s.ID,
			Position:   s.Position,
			Name:       s.Name,
			Capacity:   s.Capacity,
			Confirmed:  counts[s.ID],
			IsHeld:     s.IsHeld,
			HeldReason: s.HeldReason,
			Locked:     st.Locked,
			LockedByMe: st.Mine,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out, "locking_enabled": h.Locks.Enabled()})
}

// Hold takes a short-lived exclusive hold on a slot. Anonymous callers
// without an X-Hold-Token get one minted here and must echo it on
// subsequent calls.
func (h *ClaimHandler) Hold(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	slotID := pathID(c, "id")
	s, err := h.Slots.GetByID(ctx, slotID)
	if err != nil {
		return repoError(c, err)
	}
	if s.IsHeld {
		return jsonError(c, http.StatusConflict, "slot is held back")
	}

	holder := middleware.HolderID(c)
	minted := ""
	if holder == "" {
		minted = uuid.NewString()
		holder = "guest:" + minted
	}

	res := h.Locks.Acquire(ctx, slotID, holder, h.HoldTTL)
	if res.Disabled {
		return c.JSON(http.StatusOK, echo.Map{"held": false, "locking_enabled": false})
	}
	if !res.Acquired {
		c.Response().Header().Set("Retry-After", retryAfterSeconds(res.RetryAfter))
		return jsonError(c, http.StatusConflict, "slot held by someone else")
	}
	resp := echo.Map{"held": true, "extended": res.Extended, "expires_in_sec": int(h.holdTTL().Seconds())}
	if minted != "" {
		resp["hold_token"] = minted
	}
	return c.JSON(http.StatusOK, resp)
}

// ReleaseHold drops the caller's hold on one slot.
func (h *ClaimHandler) ReleaseHold(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	holder := middleware.HolderID(c)
	if holder == "" {
		return jsonError(c, http.StatusBadRequest, "no hold identity")
	}
	released := h.Locks.Release(ctx, pathID(c, "id"), holder)
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// HoldStatus reports who holds a slot relative to the caller, for
// polling while a claimant waits out a competing hold.
func (h *ClaimHandler) HoldStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	slotID := pathID(c, "id")
	if _, err := h.Slots.GetByID(ctx, slotID); err != nil {
		return repoError(c, err)
	}
	st := h.Locks.LockStatus(ctx, slotID, middleware.HolderID(c))
	if st.Disabled {
		return c.JSON(http.StatusOK, echo.Map{"locking_enabled": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"locking_enabled": true,
		"locked":          st.Locked,
		"locked_by_me":    st.Mine,
		"expires_in_sec":  int(st.TTL.Seconds()),
	})
}

// ReleaseAll drops every hold the caller owns (leaving the grid page,
// closing the session).
func (h *ClaimHandler) ReleaseAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	holder := middleware.HolderID(c)
	if holder == "" {
		return jsonError(c, http.StatusBadRequest, "no hold identity")
	}
	n := h.Locks.ReleaseAllForHolder(ctx, holder)
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

type claimReq struct {
	GuestName string `json:"guest_name"`
}

// Claim commits a registration on a slot. The slot row is locked for
// the duration of the transaction; whoever wins the row lock and finds
// capacity gets CONFIRMED, later claimants queue. The Redis hold only
// reduces contention, it grants nothing.
func (h *ClaimHandler) Claim(c echo.Context) error {
	var req claimReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.GuestName = strings.TrimSpace(req.GuestName)

	var userID *uint64
	if uid, err := getUserID(c); err == nil && uid != 0 {
		userID = &uid
	}
	if userID == nil && req.GuestName == "" {
		return jsonError(c, http.StatusBadRequest, "guest_name required for anonymous claims")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	slotID := pathID(c, "id")
	s, err := h.Slots.GetByID(ctx, slotID)
	if err != nil {
		return repoError(c, err)
	}
	if s.IsHeld {
		return jsonError(c, http.StatusConflict, "slot is held back")
	}
	accepting, err := h.instanceAccepting(c, s.InstanceID)
	if err != nil {
		return repoError(c, err)
	}
	if !accepting {
		return jsonError(c, http.StatusConflict, "registration window is not open")
	}

	tx, err := h.Forms.DB().BeginTx(ctx, nil)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}
	defer func() { _ = tx.Rollback() }()

	locked, err := h.Slots.GetByIDForUpdateTx(ctx, tx, slotID)
	if err != nil {
		return repoError(c, err)
	}
	var guestName *string
	if userID == nil {
		guestName = &req.GuestName
	}
	dup, err := h.Regs.HasActiveForClaimantTx(ctx, tx, slotID, userID, guestName)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}
	if dup {
		return jsonError(c, http.StatusConflict, "already registered on this slot")
	}

	confirmed, err := h.Regs.ActiveCountBySlotTx(ctx, tx, slotID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}
	reg := model.Registration{SlotID: slotID, UserID: userID, GuestName: guestName}
	if confirmed < locked.Capacity {
		reg.Status = model.RegistrationConfirmed
	} else {
		reg.Status = model.RegistrationQueued
		pos, err := h.Regs.NextQueuePositionTx(ctx, tx, slotID)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "internal error")
		}
		reg.QueuePosition = pos
	}
	if err := h.Regs.CreateTx(ctx, tx, &reg); err != nil {
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}
	if err := tx.Commit(); err != nil {
		return jsonError(c, http.StatusInternalServerError, "internal error")
	}

	// The hold has served its purpose.
	if holder := middleware.HolderID(c); holder != "" {
		h.Locks.Release(ctx, slotID, holder)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"registration_id": reg.ID,
		"status":          string(reg.Status),
		"queue_position":  reg.QueuePosition,
	})
}

// CancelRegistration cancels the caller's own registration, honoring
// the instance's edit cutoff.
func (h *ClaimHandler) CancelRegistration(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	regID := pathID(c, "id")
	reg, err := h.Regs.GetByID(ctx, regID)
	if err != nil {
		return repoError(c, err)
	}
	if reg.UserID == nil || *reg.UserID != uid {
		return jsonError(c, http.StatusForbidden, "forbidden")
	}
	s, err := h.Slots.GetByID(ctx, reg.SlotID)
	if err != nil {
		return repoError(c, err)
	}
	inst, err := h.Instances.GetByID(ctx, s.InstanceID)
	if err != nil {
		return repoError(c, err)
	}
	if inst.EditCutoffAt != nil && time.Now().UTC().After(*inst.EditCutoffAt) {
		return jsonError(c, http.StatusConflict, "edit cutoff has passed")
	}
	if err := h.Regs.CancelOwn(ctx, regID, uid, "cancelled by participant"); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// instanceAccepting resolves whether the instance currently accepts
// registrations.
func (h *ClaimHandler) instanceAccepting(c echo.Context, instanceID uint64) (bool, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	inst, err := h.Instances.GetByID(ctx, instanceID)
	if err != nil {
		return false, err
	}
	f, err := h.Forms.GetByID(ctx, inst.FormID)
	if err != nil {
		return false, err
	}
	caps, err := h.Slots.CapacityByInstances(ctx, []uint64{instanceID})
	if err != nil {
		return false, err
	}
	counts, err := h.Regs.ActiveCountByInstances(ctx, []uint64{instanceID})
	if err != nil {
		return false, err
	}
	occ := signup.Occupancy{Registrations: counts[instanceID], Capacity: caps[instanceID]}
	report := signup.ResolveInstanceStatus(*f, *inst, occ, time.Now().UTC())
	return report.Accepting, nil
}

func (h *ClaimHandler) holdTTL() time.Duration {
	if h.HoldTTL > 0 {
		return h.HoldTTL
	}
	return lock.DefaultTTL
}

func retryAfterSeconds(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
