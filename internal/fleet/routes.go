package fleet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GeofenceRoutes serves the shape-store CRUD, the ad-hoc containment check,
// and the account sweep. requireAuth guards the mutating routes and may be
// a passthrough.
func GeofenceRoutes(requireAuth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/{id}", GetGeofenceHandler)
	r.Get("/{id}/events", EventsByGeofenceHandler)
	r.Get("/customer/{custId}", ListGeofencesByCustomerHandler)
	r.Get("/equipment-in-geofence/{accountId}", SweepAccountHandler)
	r.Post("/check-point", CheckPointHandler)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", CreateGeofenceHandler)
		r.Put("/{id}", UpdateGeofenceHandler)
		r.Delete("/{id}", DeleteGeofenceHandler)
	})

	return r
}

// EquipmentRoutes serves the position feed and the location reads.
// feedLimit throttles the device-facing feed endpoint.
func EquipmentRoutes(feedLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.With(feedLimit).Post("/location", ReportLocationHandler)
	r.Get("/{id}/location", CurrentLocationHandler)
	r.Get("/{id}/location/history", LocationHistoryHandler)

	return r
}
