package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

// SlotChangesHandler applies the form's current slot template to live
// instances, migrating or cancelling displaced registrations.
type SlotChangesHandler struct {
	Forms       *repository.FormRepo
	Productions *repository.ProductionRepo
	Resizer     *signup.Resizer
	Notify      CancelNotifier
}

func NewSlotChangesHandler(forms *repository.FormRepo, productions *repository.ProductionRepo,
	resizer *signup.Resizer, notify CancelNotifier) *SlotChangesHandler {
	if forms == nil || productions == nil || resizer == nil {
		panic("nil dependency passed to NewSlotChangesHandler")
	}
	return &SlotChangesHandler{Forms: forms, Productions: productions, Resizer: resizer, Notify: notify}
}

type slotChangesReq struct {
	// InstanceID limits the resize to one instance; zero means all
	// non-canceled instances of the form.
	InstanceID uint64 `json:"instance_id"`
	Policy     string `json:"policy"` // reassign | cancel
}

// Apply resizes the slot inventory to match the form template.
func (h *SlotChangesHandler) Apply(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req slotChangesReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	policy := signup.ResizeReassign
	if req.Policy == string(signup.ResizeCancel) {
		policy = signup.ResizeCancel
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}

	var res *signup.ResizeResult
	if req.InstanceID != 0 {
		res, err = h.Resizer.Apply(ctx, *f, req.InstanceID, policy)
	} else {
		res, err = h.Resizer.ApplyAll(ctx, *f, policy)
	}
	if err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}
	h.Notify.NotifyCancelled(c.Request().Context(), *f, req.InstanceID, reasonSlotRemovedLabel, res.Cancelled)

	return c.JSON(http.StatusOK, echo.Map{
		"updated":    res.Updated,
		"created":    res.Created,
		"removed":    res.Removed,
		"reassigned": res.Reassigned,
		"cancelled":  len(res.Cancelled),
	})
}
