package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/recipe-app-api/internal/model"
	"github.com/iliyamo/recipe-app-api/internal/service"
)

// AttrHandler serves /v1/tags or /v1/ingredients, depending on Kind.
type AttrHandler struct {
	Kind  model.AttrKind
	Attrs *service.AttrService
	Log   *slog.Logger
}

func NewAttrHandler(kind model.AttrKind, s *service.AttrService, log *slog.Logger) *AttrHandler {
	return &AttrHandler{Kind: kind, Attrs: s, Log: log}
}

type attrResp struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type attrReq struct {
	Name string `json:"name" validate:"required,max=255"`
}

func toAttrResp(list []model.Attr) []attrResp {
	out := make([]attrResp, len(list))
	for i, a := range list {
		out[i] = attrResp{ID: a.ID, Name: a.Name}
	}
	return out
}

// List handles GET with an optional assigned_only=0|1.
func (h *AttrHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	list, err := h.Attrs.List(c.Request().Context(), uid, h.Kind, c.QueryParam("assigned_only"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toAttrResp(list))
}

// Update handles PUT and PATCH /:id; name is the only writable field.
func (h *AttrHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	var req attrReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	a, err := h.Attrs.Rename(c.Request().Context(), uid, h.Kind, id, req.Name)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, attrResp{ID: a.ID, Name: a.Name})
}

// Delete handles DELETE /:id.
func (h *AttrHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if err := h.Attrs.Delete(c.Request().Context(), uid, h.Kind, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
