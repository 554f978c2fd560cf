package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/repository"
)

// ProductionHandler serves the operator-facing production endpoints.
type ProductionHandler struct {
	Productions *repository.ProductionRepo
}

func NewProductionHandler(p *repository.ProductionRepo) *ProductionHandler {
	if p == nil {
		panic("nil repository passed to NewProductionHandler")
	}
	return &ProductionHandler{Productions: p}
}

type productionReq struct {
	Name string `json:"name"`
}

type productionResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Create registers a new production owned by the authenticated operator.
func (h *ProductionHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req productionReq
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p := &model.Production{OwnerID: uid, Name: req.Name}
	if err := h.Productions.Create(ctx, p); err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, productionResp{ID: p.ID, Name: p.Name})
}

// List returns the authenticated operator's productions.
func (h *ProductionHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "unauthorized")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Productions.ListByOwner(ctx, uid)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]productionResp, 0, len(items))
	for _, p := range items {
		out = append(out, productionResp{ID: p.ID, Name: p.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"productions": out})
}
