package controllers

import (
	"net/http"
	"strconv"

	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

// GeoController proxies the address lookups. Lookup failures answer with an
// empty result; the form keeps whatever the user typed.
type GeoController struct {
	Geo services.Geocoder
}

func NewGeoController(geo services.Geocoder) *GeoController {
	return &GeoController{Geo: geo}
}

func (gc *GeoController) Search(c *gin.Context) {
	found, err := gc.Geo.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.InfoLogger.Warnf("address search: %v", err)
	}
	if found == nil {
		found = []services.AddressSuggestion{}
	}
	utils.RespondJSON(c, http.StatusOK, "Sugestões", found)
}

func (gc *GeoController) Reverse(c *gin.Context) {
	lat, lng, ok := coords(c)
	if !ok {
		return
	}
	addr, err := gc.Geo.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		utils.InfoLogger.Warnf("reverse geocode: %v", err)
		addr = nil
	}
	utils.RespondJSON(c, http.StatusOK, "Endereço", addr)
}

func (gc *GeoController) Nearby(c *gin.Context) {
	lat, lng, ok := coords(c)
	if !ok {
		return
	}
	names, err := gc.Geo.NearbyStreets(c.Request.Context(), lat, lng, c.Query("street"))
	if err != nil {
		utils.InfoLogger.Warnf("nearby streets: %v", err)
	}
	if names == nil {
		names = []string{}
	}
	utils.RespondJSON(c, http.StatusOK, "Ruas próximas", names)
}

func coords(c *gin.Context) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		utils.RespondAppError(c, utils.NewValidationError("lat", "coordenadas inválidas"))
		return 0, 0, false
	}
	return lat, lng, true
}
