package fleet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serviceError maps the service error taxonomy onto HTTP statuses:
// validation → 400, unknown identifiers → 404, unusable stored geometry
// → 422, anything else → 500.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPosition), errors.Is(err, ErrInvalidEquipment), errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, ErrBadShape):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type geofencePayload struct {
	Name              string      `json:"name"`
	ShapeType         string      `json:"shape_type"`
	Polygon           [][]float64 `json:"polygon"`
	CenterLat         *float64    `json:"center_lat"`
	CenterLng         *float64    `json:"center_lng"`
	RadiusM           *float64    `json:"radius_m"`
	TagLookupID       string      `json:"tag_lookup_id"`
	CustomerID        string      `json:"customer_id"`
	AccountIDs        []string    `json:"account_ids"`
	Description       string      `json:"description"`
	Status            string      `json:"status"`
	EventDefinitionID *string     `json:"event_definition_id"`
}

func CreateGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	var body geofencePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gf, err := svc.CreateGeofence(r.Context(), CreateGeofenceInput{
		Name:              body.Name,
		ShapeType:         ShapeType(body.ShapeType),
		Ring:              body.Polygon,
		CenterLat:         body.CenterLat,
		CenterLng:         body.CenterLng,
		RadiusM:           body.RadiusM,
		TagLookupID:       body.TagLookupID,
		CustomerID:        body.CustomerID,
		AccountIDs:        body.AccountIDs,
		Description:       body.Description,
		Status:            GeofenceStatus(body.Status),
		EventDefinitionID: body.EventDefinitionID,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gf)
}

func UpdateGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}

	// Pointer fields so absent keys leave the record untouched.
	var body struct {
		Name              *string     `json:"name"`
		ShapeType         *string     `json:"shape_type"`
		Polygon           [][]float64 `json:"polygon"`
		CenterLat         *float64    `json:"center_lat"`
		CenterLng         *float64    `json:"center_lng"`
		RadiusM           *float64    `json:"radius_m"`
		TagLookupID       *string     `json:"tag_lookup_id"`
		AccountIDs        []string    `json:"account_ids"`
		Description       *string     `json:"description"`
		Status            *string     `json:"status"`
		EventDefinitionID *string     `json:"event_definition_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := UpdateGeofenceInput{
		Name:              body.Name,
		Ring:              body.Polygon,
		CenterLat:         body.CenterLat,
		CenterLng:         body.CenterLng,
		RadiusM:           body.RadiusM,
		TagLookupID:       body.TagLookupID,
		AccountIDs:        body.AccountIDs,
		Description:       body.Description,
		EventDefinitionID: body.EventDefinitionID,
	}
	if body.ShapeType != nil {
		st := ShapeType(*body.ShapeType)
		in.ShapeType = &st
	}
	if body.Status != nil {
		gs := GeofenceStatus(*body.Status)
		in.Status = &gs
	}

	gf, err := svc.UpdateGeofence(r.Context(), id, in)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gf)
}

func GetGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}
	gf, err := svc.GetGeofence(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gf)
}

func ListGeofencesByCustomerHandler(w http.ResponseWriter, r *http.Request) {
	custID := chi.URLParam(r, "custId")
	fences, err := svc.ListGeofencesByCustomer(r.Context(), custID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if fences == nil {
		fences = []Geofence{}
	}
	writeJSON(w, http.StatusOK, fences)
}

func DeleteGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}
	if err := svc.DeleteGeofence(r.Context(), id); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "geofence deleted"})
}

func CheckPointHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GeofenceID string  `json:"geofence_id"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(body.GeofenceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}
	inside, err := svc.CheckPoint(r.Context(), id, body.Latitude, body.Longitude)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geofence_id": body.GeofenceID,
		"inside":      inside,
	})
}

func EventsByGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := svc.ListEventsByGeofence(r.Context(), id, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	if events == nil {
		events = []GeofenceEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// SweepAccountHandler re-checks all of one account's equipment against its
// active geofences and returns any newly recorded events.
func SweepAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	events, err := svc.SweepAccount(r.Context(), accountID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "sweep complete",
		"events":  events,
	})
}

// ReportLocationHandler is the device-facing position feed.
func ReportLocationHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EquipmentID   string  `json:"equipment_id"`
		Latitude      float64 `json:"latitude"`
		Longitude     float64 `json:"longitude"`
		LocationLabel string  `json:"location_label"`
		MotionStatus  string  `json:"motion_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(body.EquipmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidEquipment.Error())
		return
	}

	events, err := svc.ReportLocation(r.Context(), LocationReport{
		EquipmentID:   id,
		Latitude:      body.Latitude,
		Longitude:     body.Longitude,
		LocationLabel: body.LocationLabel,
		MotionStatus:  MotionStatus(body.MotionStatus),
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "location recorded",
		"events":  events,
	})
}

func CurrentLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}
	loc, err := svc.GetCurrentLocation(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func LocationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := svc.ListLocationHistory(r.Context(), id, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	if rows == nil {
		rows = []EquipmentLocationHistory{}
	}
	writeJSON(w, http.StatusOK, rows)
}
