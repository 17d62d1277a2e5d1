package handler

import (
	"net/http"

	"github.com/nocturna-project/nocturna/internal/api/models"
	"github.com/nocturna-project/nocturna/internal/api/response"
	"github.com/nocturna-project/nocturna/internal/impact"
)

// ImpactHandler handles the impact estimation endpoints.
type ImpactHandler struct {
	impact *impact.Service
}

// NewImpactHandler creates a new ImpactHandler.
func NewImpactHandler(impactSvc *impact.Service) *ImpactHandler {
	return &ImpactHandler{impact: impactSvc}
}

// Ecological handles GET /v1/impact/ecological.
func (h *ImpactHandler) Ecological(w http.ResponseWriter, r *http.Request) {
	loc, fieldErrors := parseLocation(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrors)
		return
	}
	radius, ferr := queryFloat(r, "radius", defaultRadiusKm)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}

	assessment, err := h.impact.AssessEcological(r.Context(), loc, radius)
	if err != nil {
		response.InternalError(w, r, "ecological assessment failed")
		return
	}
	response.JSON(w, r, http.StatusOK, assessment)
}

// Energy handles GET /v1/impact/energy.
func (h *ImpactHandler) Energy(w http.ResponseWriter, r *http.Request) {
	loc, fieldErrors := parseLocation(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrors)
		return
	}
	radius, ferr := queryFloat(r, "radius", defaultRadiusKm)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}
	areaKm2, ferr := queryFloat(r, "areaKm2", 0)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}
	if areaKm2 < 0 {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{
			{Field: "areaKm2", Message: "must be positive", Code: "out_of_range"},
		})
		return
	}

	estimate, err := h.impact.EstimateEnergyWaste(r.Context(), loc, radius, areaKm2)
	if err != nil {
		response.InternalError(w, r, "energy waste estimation failed")
		return
	}
	response.JSON(w, r, http.StatusOK, estimate)
}
