package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/nocturna-project/nocturna/internal/anomaly"
	"github.com/nocturna-project/nocturna/internal/api/models"
	"github.com/nocturna-project/nocturna/internal/api/response"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/seasonal"
	"github.com/nocturna-project/nocturna/internal/trend"
)

// AnalyticsHandler handles the analytics endpoints.
type AnalyticsHandler struct {
	correlation *correlation.Service
	trend       *trend.Service
	anomaly     *anomaly.Service
	seasonal    *seasonal.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(
	correlationSvc *correlation.Service,
	trendSvc *trend.Service,
	anomalySvc *anomaly.Service,
	seasonalSvc *seasonal.Service,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		correlation: correlationSvc,
		trend:       trendSvc,
		anomaly:     anomalySvc,
		seasonal:    seasonalSvc,
	}
}

// Correlation handles GET /v1/analytics/correlation.
func (h *AnalyticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.correlation.Correlate(r.Context(), loc, radius)
	if err != nil {
		response.InternalError(w, r, "correlation failed")
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// Trend handles GET /v1/analytics/trend.
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
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
	years, ferr := queryInt(r, "years", defaultYearsBack)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}
	forecastYears, ferr := queryInt(r, "forecastYears", defaultForecastYears)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}

	model, err := h.trend.Trend(r.Context(), loc, radius, years, forecastYears)
	if err != nil {
		if errors.Is(err, trend.ErrInsufficientData) {
			response.InsufficientData(w, r, "not enough yearly data points to fit a trend")
			return
		}
		response.InternalError(w, r, "trend analysis failed")
		return
	}
	response.JSON(w, r, http.StatusOK, model)
}

// Anomaly handles GET /v1/analytics/anomaly.
func (h *AnalyticsHandler) Anomaly(w http.ResponseWriter, r *http.Request) {
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
	windowDays, ferr := queryInt(r, "windowDays", defaultWindowDays)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}

	verdict, err := h.anomaly.Detect(r.Context(), loc, radius, windowDays)
	if err != nil {
		if errors.Is(err, anomaly.ErrInsufficientData) {
			response.InsufficientData(w, r, "no ground readings available at this location")
			return
		}
		response.InternalError(w, r, "anomaly detection failed")
		return
	}
	response.JSON(w, r, http.StatusOK, verdict)
}

// Seasonal handles GET /v1/analytics/seasonal.
func (h *AnalyticsHandler) Seasonal(w http.ResponseWriter, r *http.Request) {
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

	profile, err := h.seasonal.Decompose(r.Context(), loc, radius)
	if err != nil {
		response.InternalError(w, r, "seasonal decomposition failed")
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

// Hotspots handles GET /v1/analytics/hotspots.
func (h *AnalyticsHandler) Hotspots(w http.ResponseWriter, r *http.Request) {
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

	currentYear := time.Now().Year()
	toYear, ferr := queryInt(r, "toYear", currentYear)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}
	fromYear, ferr := queryInt(r, "fromYear", toYear-1)
	if ferr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*ferr})
		return
	}
	if fromYear >= toYear {
		response.BadRequest(w, r, "invalid year range", []models.FieldError{
			{Field: "fromYear", Message: "must be before toYear", Code: "invalid_range"},
		})
		return
	}

	report, err := h.trend.GrowthHotspots(r.Context(), loc, radius, fromYear, toYear)
	if err != nil {
		response.InternalError(w, r, "hotspot analysis failed")
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}
