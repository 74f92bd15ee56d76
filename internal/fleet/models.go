package fleet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/castusphanik/lucky-backend-sub000/internal/geo"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ShapeType string

const (
	ShapePolygon ShapeType = "Polygon"
	ShapeCircle  ShapeType = "Circle"
)

type EventType string

const (
	EventEntry EventType = "entry"
	EventExit  EventType = "exit"
)

type MotionStatus string

const (
	MotionMoving  MotionStatus = "moving"
	MotionIdle    MotionStatus = "idle"
	MotionStopped MotionStatus = "stopped"
)

type GeofenceStatus string

const (
	StatusActive   GeofenceStatus = "active"
	StatusInactive GeofenceStatus = "inactive"
)

// Account is the billing/ownership unit geofences are linked to and
// equipment is allocated to.
type Account struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `json:"name"`
	CustomerID string    `gorm:"index;size:50" json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Equipment is a tracked unit. GeofenceIDs is the materialized
// equipment-geofence association cache: derived from the allocation's
// account, rebuilt on geofence create/update, never the source of truth.
type Equipment struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UnitNumber  string         `gorm:"uniqueIndex;size:50" json:"unit_number"`
	AccountID   uuid.UUID      `gorm:"type:uuid;index" json:"account_id"`
	GeofenceIDs pq.StringArray `gorm:"type:text[]" json:"geofence_ids"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Geofence stores one named region. Exactly one of {Ring, CenterLat+
// CenterLng+RadiusM} is populated, matching ShapeType. Rows are never
// hard-deleted, only flagged.
type Geofence struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `json:"name"`
	CustomerID string         `gorm:"index;size:50" json:"customer_id"`
	AccountIDs pq.StringArray `gorm:"type:text[]" json:"account_ids"`

	ShapeType ShapeType `gorm:"size:10" json:"shape_type"`
	// Ring holds the polygon boundary as a JSON array of [lng, lat] pairs
	// (GeoJSON-style ordering), closed, first ring only.
	Ring      string   `gorm:"type:text" json:"ring,omitempty"`
	CenterLat *float64 `json:"center_lat,omitempty"`
	CenterLng *float64 `json:"center_lng,omitempty"`
	RadiusM   *float64 `json:"radius_m,omitempty"`

	Status            GeofenceStatus `gorm:"size:10;default:active" json:"status"`
	Deleted           bool           `gorm:"default:false" json:"deleted"`
	TagLookupID       string         `gorm:"size:50" json:"tag_lookup_id"`
	EventDefinitionID *string        `gorm:"size:50" json:"event_definition_id,omitempty"`
	Description       string         `json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EquipmentLocation is the live position: at most one row per equipment,
// overwritten on every report.
type EquipmentLocation struct {
	EquipmentID   uuid.UUID    `gorm:"type:uuid;primaryKey" json:"equipment_id"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	LocationLabel string       `json:"location_label"`
	MotionStatus  MotionStatus `gorm:"size:10" json:"motion_status"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// EquipmentLocationHistory is the append-only report log. Rows are never
// updated or deleted.
type EquipmentLocationHistory struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID   uuid.UUID    `gorm:"type:uuid;index" json:"equipment_id"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	LocationLabel string       `json:"location_label"`
	MotionStatus  MotionStatus `gorm:"size:10" json:"motion_status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// GeofenceMembership is the prior-state row behind entry/exit transition
// detection: one row per equipment/geofence pair that has ever been
// evaluated.
type GeofenceMembership struct {
	EquipmentID uuid.UUID `gorm:"type:uuid;primaryKey" json:"equipment_id"`
	GeofenceID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"geofence_id"`
	Inside      bool      `json:"inside"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GeofenceEvent is an immutable membership transition record.
type GeofenceEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID uuid.UUID `gorm:"type:uuid;index" json:"equipment_id"`
	AccountID   uuid.UUID `gorm:"type:uuid;index" json:"account_id"`
	GeofenceID  uuid.UUID `gorm:"type:uuid;index" json:"geofence_id"`
	EventType   EventType `gorm:"size:10" json:"event_type"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func (Account) TableName() string                  { return "fleet.accounts" }
func (Equipment) TableName() string                { return "fleet.equipment" }
func (Geofence) TableName() string                 { return "fleet.geofences" }
func (EquipmentLocation) TableName() string        { return "fleet.equipment_locations" }
func (EquipmentLocationHistory) TableName() string { return "fleet.equipment_location_history" }
func (GeofenceMembership) TableName() string       { return "fleet.geofence_memberships" }
func (GeofenceEvent) TableName() string            { return "fleet.geofence_events" }

// Shape materializes the stored geometry. Degenerate shape data (nil
// radius, too-short ring) comes back as an error so callers can skip the
// record instead of failing the whole evaluation.
func (g *Geofence) Shape() (geo.Shape, error) {
	switch g.ShapeType {
	case ShapeCircle:
		if g.CenterLat == nil || g.CenterLng == nil || g.RadiusM == nil {
			return nil, fmt.Errorf("geofence %s: %w", g.ID, geo.ErrMissingRadius)
		}
		return geo.NewCircle(geo.Point{Lat: *g.CenterLat, Lng: *g.CenterLng}, *g.RadiusM)
	case ShapePolygon:
		ring, err := ParseRing(g.Ring)
		if err != nil {
			return nil, fmt.Errorf("geofence %s: %w", g.ID, err)
		}
		return geo.NewPolygon(ring)
	default:
		return nil, fmt.Errorf("geofence %s: unknown shape type %q", g.ID, g.ShapeType)
	}
}

// ParseRing decodes a JSON array of [lng, lat] pairs into points.
func ParseRing(raw string) ([]geo.Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("parse ring: %w", err)
	}
	ring := make([]geo.Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("parse ring: vertex has %d coordinates", len(p))
		}
		ring = append(ring, geo.Point{Lat: p[1], Lng: p[0]})
	}
	return ring, nil
}

// EncodeRing is the inverse of ParseRing, used when persisting a polygon.
func EncodeRing(ring [][]float64) (string, error) {
	raw, err := json.Marshal(ring)
	if err != nil {
		return "", fmt.Errorf("encode ring: %w", err)
	}
	return string(raw), nil
}
