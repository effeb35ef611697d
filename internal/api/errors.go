package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/storage"
)

var errNoLayoutStore = errors.New("layout storage is not configured")

// badRequest marks an error as the client's fault.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func statusFor(err error) int {
	var (
		idx     *heatmap.IndexError
		unknown *beacon.UnknownBeaconError
		calc    *beacon.RadiusCalculationError
		bad     badRequest
	)
	switch {
	case errors.As(err, &idx),
		errors.Is(err, heatmap.ErrSampleNotFound),
		errors.Is(err, storage.ErrLayoutNotFound):
		return http.StatusNotFound
	case errors.As(err, &unknown), errors.As(err, &calc), errors.As(err, &bad),
		errors.Is(err, storage.ErrEmptyLayoutName):
		return http.StatusBadRequest
	case errors.Is(err, errNoLayoutStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
