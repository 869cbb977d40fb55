// README: Operator handlers for the driver/tricycle registry, rider blocks and forced cancellation.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"toda/internal/http/middleware"
	"toda/internal/modules/booking"
	"toda/internal/modules/dispatch"
	"toda/internal/modules/fleet"
	"toda/internal/types"
)

type RiderBlocker interface {
	SetBlocked(ctx context.Context, riderID types.ID, blocked bool) error
}

type AdminHandler struct {
	fleet    *fleet.Service
	riders   RiderBlocker
	dispatch *dispatch.Service
}

func NewAdminHandler(fleetSvc *fleet.Service, riders RiderBlocker, dispatchSvc *dispatch.Service) *AdminHandler {
	return &AdminHandler{fleet: fleetSvc, riders: riders, dispatch: dispatchSvc}
}

type registerDriverReq struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

func (h *AdminHandler) RegisterDriver(c *gin.Context) {
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.ID) {
		writeError(c, http.StatusBadRequest, "id and name are required")
		return
	}
	d, err := h.fleet.RegisterDriver(c.Request.Context(), fleet.RegisterDriverCommand{
		ID:    types.ID(req.ID),
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

type registerTricycleReq struct {
	ID          string `json:"id" binding:"required"`
	BodyNumber  string `json:"body_number" binding:"required"`
	PlateNumber string `json:"plate_number"`
}

func (h *AdminHandler) RegisterTricycle(c *gin.Context) {
	var req registerTricycleReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.ID) {
		writeError(c, http.StatusBadRequest, "id and body_number are required")
		return
	}
	t, err := h.fleet.RegisterTricycle(c.Request.Context(), fleet.RegisterTricycleCommand{
		ID:          types.ID(req.ID),
		BodyNumber:  req.BodyNumber,
		PlateNumber: req.PlateNumber,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

type assignTricycleReq struct {
	TricycleID string `json:"tricycle_id" binding:"required"`
}

func (h *AdminHandler) AssignTricycle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignTricycleReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.TricycleID) {
		writeError(c, http.StatusBadRequest, "tricycle_id is required")
		return
	}
	d, err := h.fleet.AssignTricycle(c.Request.Context(), id, types.ID(req.TricycleID))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

type flagReq struct {
	Value *bool `json:"value"`
}

func bindFlag(c *gin.Context) (bool, bool) {
	var req flagReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		writeError(c, http.StatusBadRequest, "value is required")
		return false, false
	}
	return *req.Value, true
}

func (h *AdminHandler) SetDriverActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	active, ok := bindFlag(c)
	if !ok {
		return
	}
	d, err := h.fleet.SetActive(c.Request.Context(), id, active)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *AdminHandler) SetRiderBlocked(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	blocked, ok := bindFlag(c)
	if !ok {
		return
	}
	if err := h.riders.SetBlocked(c.Request.Context(), id, blocked); err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": id, "blocked": blocked})
}

func (h *AdminHandler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Cancel(c.Request.Context(), id, booking.ActorOperator, types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}
