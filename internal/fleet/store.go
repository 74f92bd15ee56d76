package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups for identifiers with no row.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary of the geofence engine. The orchestrator
// and handlers only see this interface, so the event logic is testable
// without a database.
type Store interface {
	GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error)
	ListEquipmentByAccounts(ctx context.Context, accountIDs []string) ([]Equipment, error)
	ListAllEquipment(ctx context.Context) ([]Equipment, error)
	SaveEquipmentGeofences(ctx context.Context, equipmentID uuid.UUID, geofenceIDs []string) error

	CreateGeofence(ctx context.Context, g *Geofence) error
	SaveGeofence(ctx context.Context, g *Geofence) error
	GetGeofence(ctx context.Context, id uuid.UUID) (*Geofence, error)
	ListGeofencesByIDs(ctx context.Context, ids []string) ([]Geofence, error)
	ListGeofencesByCustomer(ctx context.Context, customerID string) ([]Geofence, error)
	ListActiveGeofencesByAccount(ctx context.Context, accountID string) ([]Geofence, error)

	UpsertCurrentLocation(ctx context.Context, loc *EquipmentLocation) error
	AppendLocationHistory(ctx context.Context, h *EquipmentLocationHistory) error
	GetCurrentLocation(ctx context.Context, equipmentID uuid.UUID) (*EquipmentLocation, error)
	ListLocationHistory(ctx context.Context, equipmentID uuid.UUID, limit int) ([]EquipmentLocationHistory, error)

	GetMembership(ctx context.Context, equipmentID, geofenceID uuid.UUID) (bool, error)
	SetMembership(ctx context.Context, equipmentID, geofenceID uuid.UUID, inside bool) error

	CreateEvent(ctx context.Context, ev *GeofenceEvent) error
	ListEventsByGeofence(ctx context.Context, geofenceID uuid.UUID, limit int) ([]GeofenceEvent, error)

	// Transaction runs fn against a store bound to one database
	// transaction. The position feed uses it so the current-location
	// upsert, the history append, and the event writes commit together.
	Transaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle in the Store interface.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	var eq Equipment
	err := s.db.WithContext(ctx).First(&eq, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return &eq, nil
}

// ListEquipmentByAccounts loads every unit allocated to any of the given
// accounts. Raw query so the array comparison stays on the database side.
func (s *gormStore) ListEquipmentByAccounts(ctx context.Context, accountIDs []string) ([]Equipment, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var units []Equipment
	err := s.db.WithContext(ctx).Raw(`
		SELECT * FROM fleet.equipment
		WHERE account_id::text = ANY(?)
	`, pq.Array(accountIDs)).Scan(&units).Error
	if err != nil {
		return nil, fmt.Errorf("equipment by accounts: %w", err)
	}
	return units, nil
}

func (s *gormStore) ListAllEquipment(ctx context.Context) ([]Equipment, error) {
	var units []Equipment
	if err := s.db.WithContext(ctx).Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return units, nil
}

func (s *gormStore) SaveEquipmentGeofences(ctx context.Context, equipmentID uuid.UUID, geofenceIDs []string) error {
	err := s.db.WithContext(ctx).
		Model(&Equipment{}).
		Where("id = ?", equipmentID).
		Update("geofence_ids", pq.StringArray(geofenceIDs)).Error
	if err != nil {
		return fmt.Errorf("save equipment geofences: %w", err)
	}
	return nil
}

func (s *gormStore) CreateGeofence(ctx context.Context, g *Geofence) error {
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create geofence: %w", err)
	}
	return nil
}

func (s *gormStore) SaveGeofence(ctx context.Context, g *Geofence) error {
	if err := s.db.WithContext(ctx).Save(g).Error; err != nil {
		return fmt.Errorf("save geofence: %w", err)
	}
	return nil
}

func (s *gormStore) GetGeofence(ctx context.Context, id uuid.UUID) (*Geofence, error) {
	var g Geofence
	err := s.db.WithContext(ctx).First(&g, "id = ? AND deleted = false", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get geofence: %w", err)
	}
	return &g, nil
}

// ListGeofencesByIDs returns only active, non-deleted shapes; inactive or
// soft-deleted rows never produce events.
func (s *gormStore) ListGeofencesByIDs(ctx context.Context, ids []string) ([]Geofence, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var fences []Geofence
	err := s.db.WithContext(ctx).
		Where("id::text = ANY(?)", pq.Array(ids)).
		Where("status = ? AND deleted = false", StatusActive).
		Find(&fences).Error
	if err != nil {
		return nil, fmt.Errorf("geofences by ids: %w", err)
	}
	return fences, nil
}

func (s *gormStore) ListGeofencesByCustomer(ctx context.Context, customerID string) ([]Geofence, error) {
	var fences []Geofence
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND deleted = false", customerID).
		Order("created_at DESC").
		Find(&fences).Error
	if err != nil {
		return nil, fmt.Errorf("geofences by customer: %w", err)
	}
	return fences, nil
}

func (s *gormStore) ListActiveGeofencesByAccount(ctx context.Context, accountID string) ([]Geofence, error) {
	var fences []Geofence
	err := s.db.WithContext(ctx).
		Where("? = ANY(account_ids)", accountID).
		Where("status = ? AND deleted = false", StatusActive).
		Find(&fences).Error
	if err != nil {
		return nil, fmt.Errorf("geofences by account: %w", err)
	}
	return fences, nil
}

// UpsertCurrentLocation keeps at most one row per equipment. Retrying the
// same payload overwrites the row with identical values, never duplicates.
func (s *gormStore) UpsertCurrentLocation(ctx context.Context, loc *EquipmentLocation) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "equipment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"latitude", "longitude", "location_label", "motion_status", "updated_at",
		}),
	}).Create(loc).Error
	if err != nil {
		return fmt.Errorf("upsert current location: %w", err)
	}
	return nil
}

func (s *gormStore) AppendLocationHistory(ctx context.Context, h *EquipmentLocationHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("append location history: %w", err)
	}
	return nil
}

func (s *gormStore) GetCurrentLocation(ctx context.Context, equipmentID uuid.UUID) (*EquipmentLocation, error) {
	var loc EquipmentLocation
	err := s.db.WithContext(ctx).First(&loc, "equipment_id = ?", equipmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get current location: %w", err)
	}
	return &loc, nil
}

func (s *gormStore) ListLocationHistory(ctx context.Context, equipmentID uuid.UUID, limit int) ([]EquipmentLocationHistory, error) {
	var rows []EquipmentLocationHistory
	err := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("location history: %w", err)
	}
	return rows, nil
}

// GetMembership reports the last known inside/outside state. No row means
// the pair has never been evaluated, which reads as outside.
func (s *gormStore) GetMembership(ctx context.Context, equipmentID, geofenceID uuid.UUID) (bool, error) {
	var m GeofenceMembership
	err := s.db.WithContext(ctx).
		First(&m, "equipment_id = ? AND geofence_id = ?", equipmentID, geofenceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get membership: %w", err)
	}
	return m.Inside, nil
}

func (s *gormStore) SetMembership(ctx context.Context, equipmentID, geofenceID uuid.UUID, inside bool) error {
	m := GeofenceMembership{
		EquipmentID: equipmentID,
		GeofenceID:  geofenceID,
		Inside:      inside,
		UpdatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "equipment_id"}, {Name: "geofence_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"inside", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("set membership: %w", err)
	}
	return nil
}

func (s *gormStore) CreateEvent(ctx context.Context, ev *GeofenceEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *gormStore) ListEventsByGeofence(ctx context.Context, geofenceID uuid.UUID, limit int) ([]GeofenceEvent, error) {
	var rows []GeofenceEvent
	err := s.db.WithContext(ctx).
		Where("geofence_id = ?", geofenceID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("events by geofence: %w", err)
	}
	return rows, nil
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
