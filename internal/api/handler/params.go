// Package handler provides HTTP handlers for the Nocturna API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/nocturna-project/nocturna/internal/api/models"
	"github.com/nocturna-project/nocturna/internal/measurement"
)

// Default query parameter values shared by the analytics endpoints.
const (
	defaultRadiusKm      = 10.0
	defaultYearsBack     = 10
	defaultForecastYears = 5
	defaultWindowDays    = 365
)

// parseLocation extracts and validates the required lat/lon query parameters.
// A non-empty FieldError slice means the request should be rejected with 400.
func parseLocation(r *http.Request) (measurement.Location, []models.FieldError) {
	var fieldErrors []models.FieldError

	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")

	if latStr == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "required", Code: "missing"})
	}
	if lonStr == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "required", Code: "missing"})
	}
	if len(fieldErrors) > 0 {
		return measurement.Location{}, fieldErrors
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "must be a number", Code: "invalid"})
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "must be a number", Code: "invalid"})
	}
	if len(fieldErrors) > 0 {
		return measurement.Location{}, fieldErrors
	}

	loc := measurement.Location{Lat: lat, Lon: lon}
	if err := loc.Validate(); err != nil {
		fieldErrors = append(fieldErrors,
			models.FieldError{Field: "lat", Message: "latitude must be in [-90, 90]", Code: "out_of_range"},
			models.FieldError{Field: "lon", Message: "longitude must be in [-180, 180]", Code: "out_of_range"},
		)
		return measurement.Location{}, fieldErrors
	}

	return loc, nil
}

// queryFloat reads an optional float query parameter, falling back to def.
func queryFloat(r *http.Request, name string, def float64) (float64, *models.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: "must be a number", Code: "invalid"}
	}
	return v, nil
}

// queryInt reads an optional integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) (int, *models.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: "must be an integer", Code: "invalid"}
	}
	return v, nil
}
