package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
)

// bindJSON decodes the body into req and runs struct validation. It writes
// the error response itself and returns false when the request is unusable.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	if errs := validators.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return false
	}
	return true
}

// originFromQuery reads an optional lat/lng pair. A missing or invalid pair
// returns nil so the caller falls back to the record's location.
func originFromQuery(c *gin.Context) *models.GeoPoint {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || !utils.IsValidCoordinates(lat, lng) || utils.IsNullIsland(lat, lng) {
		return nil
	}
	return &models.GeoPoint{Lat: lat, Lng: lng}
}
