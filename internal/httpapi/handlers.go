package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"roomcore/internal/core"
	"roomcore/internal/drag"
	"roomcore/pkg/domain"
)

// Handler adapts the placement service to echo handlers.
type Handler struct {
	svc *core.Service
}

// NewHandler panics on a nil service.
func NewHandler(svc *core.Service) *Handler {
	if svc == nil {
		panic("httpapi: nil service")
	}
	return &Handler{svc: svc}
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ListScenes returns every scene with its zones.
func (h *Handler) ListScenes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Registry().ListScenes())
}

// ListZones returns the zones of one scene in resolution order.
func (h *Handler) ListZones(c echo.Context) error {
	zones, err := h.svc.Registry().ListZones(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, zones)
}

type detectResponse struct {
	SceneID string `json:"scene_id"`
	ZoneID  string `json:"zone_id,omitempty"`
	Found   bool   `json:"found"`
}

// DetectZone resolves ?x=&y= to the first zone containing the point.
func (h *Handler) DetectZone(c echo.Context) error {
	sceneID := c.Param("id")
	if _, err := h.svc.Registry().Scene(sceneID); err != nil {
		return writeError(c, err)
	}
	x, errX := strconv.ParseFloat(c.QueryParam("x"), 64)
	y, errY := strconv.ParseFloat(c.QueryParam("y"), 64)
	if errX != nil || errY != nil {
		return badRequest(c, "x and y must be numbers")
	}
	zoneID, ok := h.svc.Registry().DetectZone(sceneID, x, y)
	return c.JSON(http.StatusOK, detectResponse{SceneID: sceneID, ZoneID: zoneID, Found: ok})
}

// ListItems returns placed items, optionally filtered by ?zone=.
func (h *Handler) ListItems(c echo.Context) error {
	if zone := c.QueryParam("zone"); zone != "" {
		return c.JSON(http.StatusOK, h.svc.ItemsByZone(zone))
	}
	return c.JSON(http.StatusOK, h.svc.Items())
}

// GetItem returns one placed item.
func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.svc.Item(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type placeRequest struct {
	ItemID   string        `json:"item_id"`
	ZoneID   string        `json:"zone_id"`
	Position *domain.Point `json:"position"`
}

type itemResponse struct {
	Item       domain.PlacedItem `json:"item"`
	Violations []violationBody   `json:"violations,omitempty"`
}

// PlaceItem places an owned item.
func (h *Handler) PlaceItem(c echo.Context) error {
	var req placeRequest
	if err := c.Bind(&req); err != nil || req.ItemID == "" {
		return badRequest(c, "item_id is required")
	}
	placed, res, err := h.svc.PlaceItem(c.Request().Context(), req.ItemID, req.ZoneID, req.Position)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, itemResponse{Item: placed, Violations: violationsOf(res)})
}

// UpdatePosition sets an item's position from a {x, y} body.
func (h *Handler) UpdatePosition(c echo.Context) error {
	var p domain.Point
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "position must be {x, y}")
	}
	updated, res, err := h.svc.UpdateItemPosition(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, itemResponse{Item: updated, Violations: violationsOf(res)})
}

type zoneRequest struct {
	ZoneID string `json:"zone_id"`
}

// MoveToZone reassigns an item to the body's zone.
func (h *Handler) MoveToZone(c echo.Context) error {
	var req zoneRequest
	if err := c.Bind(&req); err != nil || req.ZoneID == "" {
		return badRequest(c, "zone_id is required")
	}
	moved, res, err := h.svc.MoveItemToZone(c.Request().Context(), c.Param("id"), req.ZoneID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, itemResponse{Item: moved, Violations: violationsOf(res)})
}

// RemoveItem deletes an item.
func (h *Handler) RemoveItem(c echo.Context) error {
	if _, err := h.svc.RemoveItem(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnplacedFurniture lists owned furniture not yet in the house.
func (h *Handler) UnplacedFurniture(c echo.Context) error {
	items, err := h.svc.UnplacedFurniture(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

type dragStateResponse struct {
	State   string        `json:"state"`
	Session *drag.Session `json:"session,omitempty"`
}

// DragSession reports the controller state.
func (h *Handler) DragSession(c echo.Context) error {
	session, ok := h.svc.DragSession()
	if !ok {
		return c.JSON(http.StatusOK, dragStateResponse{State: drag.Idle.String()})
	}
	return c.JSON(http.StatusOK, dragStateResponse{State: drag.Dragging.String(), Session: &session})
}

type startDragRequest struct {
	InstanceID string           `json:"instance_id"`
	Pointer    drag.ScreenPoint `json:"pointer"`
}

// StartDrag begins a drag.
func (h *Handler) StartDrag(c echo.Context) error {
	var req startDragRequest
	if err := c.Bind(&req); err != nil || req.InstanceID == "" {
		return badRequest(c, "instance_id is required")
	}
	session, err := h.svc.StartDrag(c.Request().Context(), req.InstanceID, req.Pointer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

type updateDragRequest struct {
	Pointer  drag.ScreenPoint `json:"pointer"`
	Viewport drag.Rect        `json:"viewport"`
}

type positionResponse struct {
	Position  domain.Point `json:"position"`
	Cancelled bool         `json:"cancelled,omitempty"`
}

// UpdateDrag maps a pointer move into scene coordinates.
func (h *Handler) UpdateDrag(c echo.Context) error {
	var req updateDragRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "pointer and viewport are required")
	}
	pos, err := h.svc.UpdateDrag(c.Request().Context(), req.Pointer, req.Viewport)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, positionResponse{Position: pos})
}

type endDragRequest struct {
	Position domain.Point `json:"position"`
	// Inside is false when the pointer was released off the scene surface.
	Inside *bool `json:"inside"`
}

// EndDrag commits a release inside the scene and rolls back one outside it.
func (h *Handler) EndDrag(c echo.Context) error {
	var req endDragRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "position is required")
	}
	if req.Inside != nil && !*req.Inside {
		return h.CancelDrag(c)
	}
	updated, res, err := h.svc.EndDrag(c.Request().Context(), req.Position)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, itemResponse{Item: updated, Violations: violationsOf(res)})
}

// CancelDrag abandons the drag.
func (h *Handler) CancelDrag(c echo.Context) error {
	origin, err := h.svc.CancelDrag(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, positionResponse{Position: origin, Cancelled: true})
}

// SaveSnapshot forces a synchronous write.
func (h *Handler) SaveSnapshot(c echo.Context) error {
	if err := h.svc.Save(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
