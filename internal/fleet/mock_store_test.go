package fleet

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// mockStore is an in-memory Store so the orchestration logic is exercised
// without a database, the same way the repository fakes in the handler
// tests work.
type mockStore struct {
	equipment   map[uuid.UUID]*Equipment
	geofences   map[uuid.UUID]*Geofence
	current     map[uuid.UUID]*EquipmentLocation
	history     []EquipmentLocationHistory
	memberships map[[2]uuid.UUID]bool
	events      []GeofenceEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		equipment:   map[uuid.UUID]*Equipment{},
		geofences:   map[uuid.UUID]*Geofence{},
		current:     map[uuid.UUID]*EquipmentLocation{},
		memberships: map[[2]uuid.UUID]bool{},
	}
}

func (m *mockStore) GetEquipment(_ context.Context, id uuid.UUID) (*Equipment, error) {
	eq, ok := m.equipment[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *eq
	return &cp, nil
}

func (m *mockStore) ListEquipmentByAccounts(_ context.Context, accountIDs []string) ([]Equipment, error) {
	wanted := map[string]struct{}{}
	for _, a := range accountIDs {
		wanted[a] = struct{}{}
	}
	var out []Equipment
	for _, eq := range m.equipment {
		if _, ok := wanted[eq.AccountID.String()]; ok {
			out = append(out, *eq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitNumber < out[j].UnitNumber })
	return out, nil
}

func (m *mockStore) ListAllEquipment(_ context.Context) ([]Equipment, error) {
	var out []Equipment
	for _, eq := range m.equipment {
		out = append(out, *eq)
	}
	return out, nil
}

func (m *mockStore) SaveEquipmentGeofences(_ context.Context, equipmentID uuid.UUID, geofenceIDs []string) error {
	eq, ok := m.equipment[equipmentID]
	if !ok {
		return ErrNotFound
	}
	eq.GeofenceIDs = geofenceIDs
	return nil
}

func (m *mockStore) CreateGeofence(_ context.Context, g *Geofence) error {
	cp := *g
	m.geofences[g.ID] = &cp
	return nil
}

func (m *mockStore) SaveGeofence(_ context.Context, g *Geofence) error {
	cp := *g
	m.geofences[g.ID] = &cp
	return nil
}

func (m *mockStore) GetGeofence(_ context.Context, id uuid.UUID) (*Geofence, error) {
	g, ok := m.geofences[id]
	if !ok || g.Deleted {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockStore) ListGeofencesByIDs(_ context.Context, ids []string) ([]Geofence, error) {
	var out []Geofence
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if g, ok := m.geofences[id]; ok && g.Status == StatusActive && !g.Deleted {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockStore) ListGeofencesByCustomer(_ context.Context, customerID string) ([]Geofence, error) {
	var out []Geofence
	for _, g := range m.geofences {
		if g.CustomerID == customerID && !g.Deleted {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockStore) ListActiveGeofencesByAccount(_ context.Context, accountID string) ([]Geofence, error) {
	var out []Geofence
	for _, g := range m.geofences {
		if g.Status != StatusActive || g.Deleted {
			continue
		}
		for _, a := range g.AccountIDs {
			if a == accountID {
				out = append(out, *g)
				break
			}
		}
	}
	return out, nil
}

func (m *mockStore) UpsertCurrentLocation(_ context.Context, loc *EquipmentLocation) error {
	cp := *loc
	m.current[loc.EquipmentID] = &cp
	return nil
}

func (m *mockStore) AppendLocationHistory(_ context.Context, h *EquipmentLocationHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	m.history = append(m.history, *h)
	return nil
}

func (m *mockStore) GetCurrentLocation(_ context.Context, equipmentID uuid.UUID) (*EquipmentLocation, error) {
	loc, ok := m.current[equipmentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (m *mockStore) ListLocationHistory(_ context.Context, equipmentID uuid.UUID, limit int) ([]EquipmentLocationHistory, error) {
	var out []EquipmentLocationHistory
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if m.history[i].EquipmentID == equipmentID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *mockStore) GetMembership(_ context.Context, equipmentID, geofenceID uuid.UUID) (bool, error) {
	return m.memberships[[2]uuid.UUID{equipmentID, geofenceID}], nil
}

func (m *mockStore) SetMembership(_ context.Context, equipmentID, geofenceID uuid.UUID, inside bool) error {
	m.memberships[[2]uuid.UUID{equipmentID, geofenceID}] = inside
	return nil
}

func (m *mockStore) CreateEvent(_ context.Context, ev *GeofenceEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockStore) ListEventsByGeofence(_ context.Context, geofenceID uuid.UUID, limit int) ([]GeofenceEvent, error) {
	var out []GeofenceEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].GeofenceID == geofenceID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *mockStore) Transaction(_ context.Context, fn func(Store) error) error {
	return fn(m)
}

// test fixture helpers

func (m *mockStore) addEquipment(accountID uuid.UUID, unit string, geofenceIDs ...string) *Equipment {
	eq := &Equipment{
		ID:          uuid.New(),
		UnitNumber:  unit,
		AccountID:   accountID,
		GeofenceIDs: geofenceIDs,
	}
	m.equipment[eq.ID] = eq
	return eq
}

func (m *mockStore) addCircleFence(accounts []string, lat, lng, radiusM float64) *Geofence {
	gf := &Geofence{
		ID:         uuid.New(),
		Name:       "circle",
		AccountIDs: accounts,
		ShapeType:  ShapeCircle,
		CenterLat:  &lat,
		CenterLng:  &lng,
		RadiusM:    &radiusM,
		Status:     StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	m.geofences[gf.ID] = gf
	return gf
}

func (m *mockStore) addPolygonFence(accounts []string, ring string) *Geofence {
	gf := &Geofence{
		ID:         uuid.New(),
		Name:       "polygon",
		AccountIDs: accounts,
		ShapeType:  ShapePolygon,
		Ring:       ring,
		Status:     StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	m.geofences[gf.ID] = gf
	return gf
}
