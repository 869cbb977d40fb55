// README: Rider booking handlers for quote/create/get/cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"toda/internal/http/middleware"
	"toda/internal/modules/booking"
	"toda/internal/modules/dispatch"
	"toda/internal/types"
)

type BookingHandler struct {
	dispatch *dispatch.Service
}

func NewBookingHandler(svc *dispatch.Service) *BookingHandler {
	return &BookingHandler{dispatch: svc}
}

type tripReq struct {
	Pickup         *types.Point `json:"pickup"`
	Dropoff        *types.Point `json:"dropoff"`
	PickupAddress  string       `json:"pickup_address"`
	DropoffAddress string       `json:"dropoff_address"`
	RiderName      string       `json:"rider_name"`
	RiderPhone     string       `json:"rider_phone"`
}

func bindTrip(c *gin.Context) (tripReq, bool) {
	var req tripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if req.Pickup == nil || req.Dropoff == nil {
		writeError(c, http.StatusBadRequest, "pickup and dropoff are required")
		return req, false
	}
	return req, true
}

func (h *BookingHandler) Quote(c *gin.Context) {
	req, ok := bindTrip(c)
	if !ok {
		return
	}
	q, err := h.dispatch.Quote(c.Request.Context(), *req.Pickup, *req.Dropoff)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// Create books a ride for the calling rider. A refused admission is a 422
// carrying the refusal reason.
func (h *BookingHandler) Create(c *gin.Context) {
	req, ok := bindTrip(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.RequestBooking(c.Request.Context(), dispatch.Request{
		RiderID:        types.ID(uid),
		RiderName:      req.RiderName,
		RiderPhone:     req.RiderPhone,
		Pickup:         *req.Pickup,
		Dropoff:        *req.Dropoff,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, bookingView(b, uid))
}

// Get shows a booking to its rider, its driver, admins, and to any driver
// while it is still pending.
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.dispatch.Get(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	uid, role := middleware.CallerUID(c), middleware.CallerRole(c)
	switch {
	case string(b.RiderID) == uid, string(b.DriverID) == uid, role == middleware.RoleAdmin:
	case role == middleware.RoleDriver && b.Status == booking.StatusPending:
	default:
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor := booking.ActorRider
	switch middleware.CallerRole(c) {
	case middleware.RoleDriver:
		actor = booking.ActorDriver
	case middleware.RoleAdmin:
		actor = booking.ActorOperator
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Cancel(c.Request.Context(), id, actor, types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}
