package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

// EventChangesHandler exposes the two-step reconcile flow for repeated
// forms: a read-only analysis that shows which events would be added and
// which instances removed (with the registrations the removal touches),
// and an apply that commits the whole diff atomically.
type EventChangesHandler struct {
	Forms       *repository.FormRepo
	Productions *repository.ProductionRepo
	Reconciler  *signup.Reconciler
	Notify      CancelNotifier
}

func NewEventChangesHandler(forms *repository.FormRepo, productions *repository.ProductionRepo,
	rec *signup.Reconciler, notify CancelNotifier) *EventChangesHandler {
	if forms == nil || productions == nil || rec == nil {
		panic("nil dependency passed to NewEventChangesHandler")
	}
	return &EventChangesHandler{Forms: forms, Productions: productions, Reconciler: rec, Notify: notify}
}

type eventAddPart struct {
	EventID   uint64 `json:"event_id"`
	EventName string `json:"event_name"`
	StartsAt  string `json:"starts_at"`
}

type removalPart struct {
	InstanceID uint64 `json:"instance_id"`
	EventID    uint64 `json:"event_id"`
	EventName  string `json:"event_name"`
	Affected   int    `json:"affected_registrations"`
}

// Analyze reports the pending diff without touching anything.
func (h *EventChangesHandler) Analyze(c echo.Context) error {
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
	report, err := h.Reconciler.Analyze(ctx, *f)
	if err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}

	adds := make([]eventAddPart, 0, len(report.ToAdd))
	for _, ev := range report.ToAdd {
		adds = append(adds, eventAddPart{EventID: ev.ID, EventName: ev.Name, StartsAt: ev.StartsAt.UTC().Format("2006-01-02T15:04:05Z")})
	}
	removals := make([]removalPart, 0, len(report.Removals))
	for _, imp := range report.Removals {
		removals = append(removals, removalPart{
			InstanceID: imp.Instance.ID,
			EventID:    imp.EventID,
			EventName:  imp.EventName,
			Affected:   len(imp.Affected),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"has_changes":            report.HasChanges(),
		"to_add":                 adds,
		"removals":               removals,
		"affected_registrations": report.AffectedRegistrations(),
	})
}

type applyChangesReq struct {
	RemovalPolicy string `json:"removal_policy"` // cancel | keep
}

// Apply commits the pending diff in one transaction. Cancelled
// registrations are reported back and published for notification.
func (h *EventChangesHandler) Apply(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req applyChangesReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	policy := signup.RemovalCancel
	if req.RemovalPolicy == string(signup.RemovalKeep) {
		policy = signup.RemovalKeep
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := ownedForm(ctx, h.Forms, h.Productions, pathID(c, "id"), uid)
	if err != nil {
		return repoError(c, err)
	}
	res, err := h.Reconciler.Apply(ctx, *f, policy)
	if err != nil {
		if errors.Is(err, signup.ErrBadConfig) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		return repoError(c, err)
	}
	h.Notify.NotifyCancelled(c.Request().Context(), *f, 0, reasonEventRemovedLabel, res.Cancelled)

	return c.JSON(http.StatusOK, echo.Map{
		"created":   res.Created,
		"removed":   res.Removed,
		"cancelled": len(res.Cancelled),
	})
}

const reasonEventRemovedLabel = "event removed from signup"
