package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/castusphanik/lucky-backend-sub000/internal/geo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rejection codes surfaced to callers of the position feed.
var (
	ErrInvalidEquipment = errors.New("INVALID_EQUIPMENT")
	ErrInvalidPosition  = errors.New("INVALID_POSITION")
)

// ErrBadShape marks a stored geofence whose geometry cannot be evaluated.
// The batch paths log and skip these; single-fence lookups surface them.
var ErrBadShape = errors.New("INVALID_GEOFENCE_SHAPE")

// ErrInvalidInput marks validation failures detected before any write.
var ErrInvalidInput = errors.New("invalid input")

// Service coordinates the geofence engine: the location feed, membership
// evaluation, transition recording, and the shape-store CRUD with its
// association-cache rebuilds.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// LocationReport is one inbound position update.
type LocationReport struct {
	EquipmentID   uuid.UUID
	Latitude      float64
	Longitude     float64
	LocationLabel string
	MotionStatus  MotionStatus
}

// EventOut is the wire form of one recorded transition.
type EventOut struct {
	GeofenceAccountID string    `json:"geofence_account_id"`
	EventType         EventType `json:"event_type"`
}

// ReportLocation persists a position report and returns the entry/exit
// transitions it produced.
//
// The current-location upsert, the history append, the membership updates
// and the event rows all commit in one transaction: a crash can never leave
// the current location updated without its history row.
//
// Transition policy: an event is emitted only when the stored membership
// state flips. Repeated reports inside the same geofence produce one entry,
// not one per report; leaving produces one exit.
func (s *Service) ReportLocation(ctx context.Context, rep LocationReport) ([]EventOut, error) {
	if !geo.ValidPoint(rep.Latitude, rep.Longitude) {
		return nil, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidPosition, rep.Latitude, rep.Longitude)
	}

	eq, err := s.store.GetEquipment(ctx, rep.EquipmentID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEquipment, rep.EquipmentID)
	}
	if err != nil {
		return nil, err
	}

	if rep.MotionStatus == "" {
		rep.MotionStatus = MotionStopped
	}

	now := time.Now().UTC()
	point := geo.Point{Lat: rep.Latitude, Lng: rep.Longitude}
	events := []EventOut{}

	err = s.store.Transaction(ctx, func(st Store) error {
		if err := st.UpsertCurrentLocation(ctx, &EquipmentLocation{
			EquipmentID:   eq.ID,
			Latitude:      rep.Latitude,
			Longitude:     rep.Longitude,
			LocationLabel: rep.LocationLabel,
			MotionStatus:  rep.MotionStatus,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}
		if err := st.AppendLocationHistory(ctx, &EquipmentLocationHistory{
			EquipmentID:   eq.ID,
			Latitude:      rep.Latitude,
			Longitude:     rep.Longitude,
			LocationLabel: rep.LocationLabel,
			MotionStatus:  rep.MotionStatus,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		// Equipment with no linked geofences is the common case.
		if len(eq.GeofenceIDs) == 0 {
			return nil
		}

		fences, err := st.ListGeofencesByIDs(ctx, eq.GeofenceIDs)
		if err != nil {
			return err
		}
		events, err = s.recordTransitions(ctx, st, eq, fences, point, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// recordTransitions evaluates one point against a set of shapes and writes
// an event per state flip. A geofence whose stored shape cannot be built is
// logged and skipped; it never fails the rest of the batch. Store errors do
// propagate, since they mean the database itself is misbehaving.
func (s *Service) recordTransitions(ctx context.Context, st Store, eq *Equipment, fences []Geofence, p geo.Point, at time.Time) ([]EventOut, error) {
	events := []EventOut{}
	for i := range fences {
		gf := &fences[i]
		shape, err := gf.Shape()
		if err != nil {
			s.log.Warn("skipping geofence with unusable shape",
				zap.String("geofence_id", gf.ID.String()),
				zap.Error(err))
			continue
		}

		inside := shape.Contains(p)
		was, err := st.GetMembership(ctx, eq.ID, gf.ID)
		if err != nil {
			return nil, err
		}
		if inside == was {
			continue
		}

		if err := st.SetMembership(ctx, eq.ID, gf.ID, inside); err != nil {
			return nil, err
		}

		eventType := EventExit
		if inside {
			eventType = EventEntry
		}
		if err := st.CreateEvent(ctx, &GeofenceEvent{
			EquipmentID: eq.ID,
			AccountID:   eq.AccountID,
			GeofenceID:  gf.ID,
			EventType:   eventType,
			Latitude:    p.Lat,
			Longitude:   p.Lng,
			RecordedAt:  at,
		}); err != nil {
			return nil, err
		}
		events = append(events, EventOut{
			GeofenceAccountID: gf.ID.String(),
			EventType:         eventType,
		})
	}
	return events, nil
}

// SweepAccount re-evaluates every unit allocated to the account against the
// account's active geofences, using each unit's last reported position.
// Units that have never reported are skipped. The same transition policy
// applies, so a sweep right after a position report records nothing new.
func (s *Service) SweepAccount(ctx context.Context, accountID string) ([]EventOut, error) {
	fences, err := s.store.ListActiveGeofencesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(fences) == 0 {
		return []EventOut{}, nil
	}

	units, err := s.store.ListEquipmentByAccounts(ctx, []string{accountID})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	events := []EventOut{}
	err = s.store.Transaction(ctx, func(st Store) error {
		for i := range units {
			eq := &units[i]
			loc, err := st.GetCurrentLocation(ctx, eq.ID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			evs, err := s.recordTransitions(ctx, st, eq, fences,
				geo.Point{Lat: loc.Latitude, Lng: loc.Longitude}, now)
			if err != nil {
				return err
			}
			events = append(events, evs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CheckPoint answers an ad-hoc containment question for one geofence.
func (s *Service) CheckPoint(ctx context.Context, geofenceID uuid.UUID, lat, lng float64) (bool, error) {
	if !geo.ValidPoint(lat, lng) {
		return false, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidPosition, lat, lng)
	}
	gf, err := s.store.GetGeofence(ctx, geofenceID)
	if err != nil {
		return false, err
	}
	shape, err := gf.Shape()
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrBadShape, err)
	}
	return shape.Contains(geo.Point{Lat: lat, Lng: lng}), nil
}

// CreateGeofenceInput carries the mandatory and shape-conditional fields of
// a create call. Ring vertices are [lng, lat] pairs.
type CreateGeofenceInput struct {
	Name              string
	ShapeType         ShapeType
	Ring              [][]float64
	CenterLat         *float64
	CenterLng         *float64
	RadiusM           *float64
	TagLookupID       string
	CustomerID        string
	AccountIDs        []string
	Description       string
	Status            GeofenceStatus
	EventDefinitionID *string
}

func (in *CreateGeofenceInput) validate() error {
	switch {
	case in.Name == "":
		return errors.New("name is required")
	case in.TagLookupID == "":
		return errors.New("tag_lookup_id is required")
	case in.CustomerID == "":
		return errors.New("customer_id is required")
	case len(in.AccountIDs) == 0:
		return errors.New("account_ids must not be empty")
	}
	switch in.ShapeType {
	case ShapeCircle:
		if in.CenterLat == nil || in.CenterLng == nil || in.RadiusM == nil {
			return errors.New("circle requires center_lat, center_lng and radius_m")
		}
		if !geo.ValidPoint(*in.CenterLat, *in.CenterLng) {
			return errors.New("center is out of range")
		}
		if *in.RadiusM <= 0 {
			return errors.New("radius_m must be positive")
		}
	case ShapePolygon:
		if len(in.Ring) == 0 {
			return errors.New("polygon requires a ring")
		}
	default:
		return fmt.Errorf("shape_type must be %q or %q", ShapePolygon, ShapeCircle)
	}
	return nil
}

// CreateGeofence validates, persists the shape, then rebuilds the
// association cache for every equipment unit reachable from the linked
// accounts. A rebuild failure on one unit is logged and skipped; the create
// itself has already succeeded.
func (s *Service) CreateGeofence(ctx context.Context, in CreateGeofenceInput) (*Geofence, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	gf := &Geofence{
		ID:                uuid.New(),
		Name:              in.Name,
		CustomerID:        in.CustomerID,
		AccountIDs:        in.AccountIDs,
		ShapeType:         in.ShapeType,
		Status:            in.Status,
		TagLookupID:       in.TagLookupID,
		EventDefinitionID: in.EventDefinitionID,
		Description:       in.Description,
	}
	if gf.Status == "" {
		gf.Status = StatusActive
	}
	switch in.ShapeType {
	case ShapeCircle:
		gf.CenterLat, gf.CenterLng, gf.RadiusM = in.CenterLat, in.CenterLng, in.RadiusM
	case ShapePolygon:
		ring, err := EncodeRing(in.Ring)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		gf.Ring = ring
	}

	// Reject geometry the evaluator could never use.
	if _, err := gf.Shape(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if err := s.store.CreateGeofence(ctx, gf); err != nil {
		return nil, err
	}

	s.RebuildAssociationsForAccounts(ctx, gf.AccountIDs)
	return gf, nil
}

// UpdateGeofenceInput is a partial update: nil fields are left untouched.
type UpdateGeofenceInput struct {
	Name              *string
	ShapeType         *ShapeType
	Ring              [][]float64
	CenterLat         *float64
	CenterLng         *float64
	RadiusM           *float64
	TagLookupID       *string
	AccountIDs        []string
	Description       *string
	Status            *GeofenceStatus
	EventDefinitionID *string
	Deleted           *bool
}

// UpdateGeofence applies the supplied fields only; updated_at always
// advances. Changing account_ids triggers an association-cache rebuild for
// the union of old and new accounts.
func (s *Service) UpdateGeofence(ctx context.Context, id uuid.UUID, in UpdateGeofenceInput) (*Geofence, error) {
	gf, err := s.store.GetGeofence(ctx, id)
	if err != nil {
		return nil, err
	}

	rebuildAccounts := map[string]struct{}{}
	if in.Name != nil {
		gf.Name = *in.Name
	}
	if in.ShapeType != nil {
		gf.ShapeType = *in.ShapeType
	}
	if len(in.Ring) > 0 {
		ring, err := EncodeRing(in.Ring)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
		gf.Ring = ring
	}
	if in.CenterLat != nil {
		gf.CenterLat = in.CenterLat
	}
	if in.CenterLng != nil {
		gf.CenterLng = in.CenterLng
	}
	if in.RadiusM != nil {
		gf.RadiusM = in.RadiusM
	}
	if in.TagLookupID != nil {
		gf.TagLookupID = *in.TagLookupID
	}
	if len(in.AccountIDs) > 0 {
		for _, a := range gf.AccountIDs {
			rebuildAccounts[a] = struct{}{}
		}
		for _, a := range in.AccountIDs {
			rebuildAccounts[a] = struct{}{}
		}
		gf.AccountIDs = in.AccountIDs
	}
	if in.Description != nil {
		gf.Description = *in.Description
	}
	if in.Status != nil {
		gf.Status = *in.Status
	}
	if in.EventDefinitionID != nil {
		gf.EventDefinitionID = in.EventDefinitionID
	}
	if in.Deleted != nil {
		gf.Deleted = *in.Deleted
	}

	// exactly one geometry stays populated, matching the shape kind
	switch gf.ShapeType {
	case ShapeCircle:
		gf.Ring = ""
	case ShapePolygon:
		gf.CenterLat, gf.CenterLng, gf.RadiusM = nil, nil, nil
	}

	if _, err := gf.Shape(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	gf.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveGeofence(ctx, gf); err != nil {
		return nil, err
	}

	if len(rebuildAccounts) > 0 {
		accounts := make([]string, 0, len(rebuildAccounts))
		for a := range rebuildAccounts {
			accounts = append(accounts, a)
		}
		s.RebuildAssociationsForAccounts(ctx, accounts)
	}
	return gf, nil
}

// DeleteGeofence soft-deletes; the row stays for event history.
func (s *Service) DeleteGeofence(ctx context.Context, id uuid.UUID) error {
	deleted := true
	_, err := s.UpdateGeofence(ctx, id, UpdateGeofenceInput{Deleted: &deleted})
	return err
}

func (s *Service) GetGeofence(ctx context.Context, id uuid.UUID) (*Geofence, error) {
	return s.store.GetGeofence(ctx, id)
}

func (s *Service) ListGeofencesByCustomer(ctx context.Context, customerID string) ([]Geofence, error) {
	return s.store.ListGeofencesByCustomer(ctx, customerID)
}

func (s *Service) GetCurrentLocation(ctx context.Context, equipmentID uuid.UUID) (*EquipmentLocation, error) {
	return s.store.GetCurrentLocation(ctx, equipmentID)
}

func (s *Service) ListLocationHistory(ctx context.Context, equipmentID uuid.UUID, limit int) ([]EquipmentLocationHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListLocationHistory(ctx, equipmentID, limit)
}

func (s *Service) ListEventsByGeofence(ctx context.Context, geofenceID uuid.UUID, limit int) ([]GeofenceEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListEventsByGeofence(ctx, geofenceID, limit)
}

// RebuildAssociationsForAccounts recomputes the cached geofence_ids array
// for every unit allocated to the given accounts. The cache is derived
// data: allocation plus active geofences are the authority. Per-unit
// failures are logged and skipped so a bad row cannot abort the batch.
func (s *Service) RebuildAssociationsForAccounts(ctx context.Context, accountIDs []string) {
	units, err := s.store.ListEquipmentByAccounts(ctx, accountIDs)
	if err != nil {
		s.log.Error("association rebuild: listing equipment failed",
			zap.Strings("account_ids", accountIDs),
			zap.Error(err))
		return
	}
	for i := range units {
		if err := s.rebuildUnit(ctx, &units[i]); err != nil {
			s.log.Warn("association rebuild: skipping unit",
				zap.String("equipment_id", units[i].ID.String()),
				zap.Error(err))
		}
	}
}

// RebuildAllAssociations recomputes the cache for the whole fleet and
// returns the number of units updated. Used by the rebuild CLI.
func (s *Service) RebuildAllAssociations(ctx context.Context) (int, error) {
	units, err := s.store.ListAllEquipment(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range units {
		if err := s.rebuildUnit(ctx, &units[i]); err != nil {
			s.log.Warn("association rebuild: skipping unit",
				zap.String("equipment_id", units[i].ID.String()),
				zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

func (s *Service) rebuildUnit(ctx context.Context, eq *Equipment) error {
	fences, err := s.store.ListActiveGeofencesByAccount(ctx, eq.AccountID.String())
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(fences))
	for _, gf := range fences {
		ids = append(ids, gf.ID.String())
	}
	return s.store.SaveEquipmentGeofences(ctx, eq.ID, ids)
}
