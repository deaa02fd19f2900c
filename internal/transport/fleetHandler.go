package transport

import (
	"net/http"

	"github.com/ds124wfegd/WB_L3/carrent/internal/service"

	"github.com/gin-gonic/gin"
)

type FleetHandler struct {
	fleetService service.FleetService
}

func NewFleetHandler(fleetService service.FleetService) *FleetHandler {
	return &FleetHandler{fleetService: fleetService}
}

func (h *FleetHandler) RegisterCar(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.RegisterCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	car, err := h.fleetService.RegisterCar(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, car)
}

// GetCar shows the license plate only to the owner and staff.
func (h *FleetHandler) GetCar(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	car, err := h.fleetService.GetCar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if !car.IsOwnedBy(actor.ID) && !actor.IsAdmin() && !actor.IsConsultant() {
		car.LicensePlate = ""
	}
	c.JSON(http.StatusOK, car)
}

func (h *FleetHandler) ScheduleInspection(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.ScheduleInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	schedule, err := h.fleetService.ScheduleInspection(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}
