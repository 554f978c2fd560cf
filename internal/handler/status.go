package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
	"github.com/timboisvert/cocoscout-sub005/internal/signup"
)

// StatusHandler serves the public read side: resolved form and instance
// status. Resolution is pure; this handler only assembles occupancy
// from the database and hands it to the resolver.
type StatusHandler struct {
	Forms     *repository.FormRepo
	Instances *repository.InstanceRepo
	Slots     *repository.SlotRepo
	Regs      *repository.RegistrationRepo
}

func NewStatusHandler(forms *repository.FormRepo, instances *repository.InstanceRepo,
	slots *repository.SlotRepo, regs *repository.RegistrationRepo) *StatusHandler {
	if forms == nil || instances == nil || slots == nil || regs == nil {
		panic("nil repository passed to NewStatusHandler")
	}
	return &StatusHandler{Forms: forms, Instances: instances, Slots: slots, Regs: regs}
}

type statusResp struct {
	Tag            string  `json:"status"`
	Label          string  `json:"label"`
	Accepting      bool    `json:"accepting"`
	Registrations  uint32  `json:"registrations"`
	Capacity       uint32  `json:"capacity"`
	SpotsRemaining uint32  `json:"spots_remaining"`
	NextInstanceID *uint64 `json:"next_instance_id,omitempty"`
}

// FormStatus resolves the aggregate status of a form across its
// instances.
func (h *StatusHandler) FormStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	f, err := h.Forms.GetByID(ctx, pathID(c, "id"))
	if err != nil {
		return repoError(c, err)
	}
	instances, err := h.Instances.ListByForm(ctx, f.ID)
	if err != nil {
		return repoError(c, err)
	}
	occ, err := h.occupancy(ctx, instances)
	if err != nil {
		return repoError(c, err)
	}
	report := signup.ResolveFormStatus(*f, instances, occ, time.Now().UTC())
	return c.JSON(http.StatusOK, toStatusResp(report))
}

// InstanceStatus resolves one instance in isolation.
func (h *StatusHandler) InstanceStatus(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	inst, err := h.Instances.GetByID(ctx, pathID(c, "id"))
	if err != nil {
		return repoError(c, err)
	}
	f, err := h.Forms.GetByID(ctx, inst.FormID)
	if err != nil {
		return repoError(c, err)
	}
	occ, err := h.occupancy(ctx, []model.Instance{*inst})
	if err != nil {
		return repoError(c, err)
	}
	report := signup.ResolveInstanceStatus(*f, *inst, occ[inst.ID], time.Now().UTC())
	return c.JSON(http.StatusOK, toStatusResp(report))
}

// occupancy joins per-instance capacity and active registration counts.
func (h *StatusHandler) occupancy(ctx context.Context, instances []model.Instance) (map[uint64]signup.Occupancy, error) {
	ids := make([]uint64, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	caps, err := h.Slots.CapacityByInstances(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := h.Regs.ActiveCountByInstances(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]signup.Occupancy, len(ids))
	for _, id := range ids {
		out[id] = signup.Occupancy{Registrations: counts[id], Capacity: caps[id]}
	}
	return out, nil
}

func toStatusResp(r signup.StatusReport) statusResp {
	return statusResp{
		Tag:            string(r.Tag),
		Label:          r.Label,
		Accepting:      r.Accepting,
		Registrations:  r.Registrations,
		Capacity:       r.Capacity,
		SpotsRemaining: r.SpotsRemaining,
		NextInstanceID: r.NextInstanceID,
	}
}
