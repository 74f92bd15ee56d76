package seeds

import (
	"fmt"

	"github.com/castusphanik/lucky-backend-sub000/internal/db"
	"github.com/castusphanik/lucky-backend-sub000/internal/fleet"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm/clause"
)

func SeedAll() error {
	if err := SeedAccounts(); err != nil {
		return err
	}
	if err := SeedEquipment(); err != nil {
		return err
	}
	if err := SeedGeofences(); err != nil {
		return err
	}
	return nil
}

// Fixed UUIDs so re-running the seeder is a no-op instead of duplicating.
var (
	acmeAccountID  = uuid.MustParse("0b8f0a52-94af-4e63-9c10-000000000001")
	northAccountID = uuid.MustParse("0b8f0a52-94af-4e63-9c10-000000000002")

	trailer1ID = uuid.MustParse("7d3f61be-21cc-47a4-8f00-000000000001")
	trailer2ID = uuid.MustParse("7d3f61be-21cc-47a4-8f00-000000000002")
	trailer3ID = uuid.MustParse("7d3f61be-21cc-47a4-8f00-000000000003")

	yardFenceID  = uuid.MustParse("c2a1e9d4-50fb-4a11-b200-000000000001")
	depotFenceID = uuid.MustParse("c2a1e9d4-50fb-4a11-b200-000000000002")
)

func SeedAccounts() error {
	accounts := []fleet.Account{
		{ID: acmeAccountID, Name: "Acme Logistics", CustomerID: "CUST-100"},
		{ID: northAccountID, Name: "Northern Haulage", CustomerID: "CUST-200"},
	}
	for _, a := range accounts {
		if err := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error; err != nil {
			return fmt.Errorf("seed account %s: %w", a.Name, err)
		}
	}
	return nil
}

func SeedEquipment() error {
	units := []fleet.Equipment{
		{ID: trailer1ID, UnitNumber: "TRL-0001", AccountID: acmeAccountID},
		{ID: trailer2ID, UnitNumber: "TRL-0002", AccountID: acmeAccountID},
		{ID: trailer3ID, UnitNumber: "TRL-0003", AccountID: northAccountID},
	}
	for _, u := range units {
		if err := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&u).Error; err != nil {
			return fmt.Errorf("seed equipment %s: %w", u.UnitNumber, err)
		}
	}
	return nil
}

func SeedGeofences() error {
	radius := 1500.0
	lat, lng := 39.9526, -75.1652

	fences := []fleet.Geofence{
		{
			ID:          yardFenceID,
			Name:        "Philadelphia Yard",
			CustomerID:  "CUST-100",
			AccountIDs:  pq.StringArray{acmeAccountID.String()},
			ShapeType:   fleet.ShapeCircle,
			CenterLat:   &lat,
			CenterLng:   &lng,
			RadiusM:     &radius,
			Status:      fleet.StatusActive,
			TagLookupID: "yard",
			Description: "Main trailer yard",
		},
		{
			ID:          depotFenceID,
			Name:        "Camden Depot",
			CustomerID:  "CUST-100",
			AccountIDs:  pq.StringArray{acmeAccountID.String(), northAccountID.String()},
			ShapeType:   fleet.ShapePolygon,
			Ring:        `[[-75.13,39.96],[-75.10,39.96],[-75.10,39.93],[-75.13,39.93],[-75.13,39.96]]`,
			Status:      fleet.StatusActive,
			TagLookupID: "depot",
			Description: "Depot polygon east of the river",
		},
	}
	for _, gf := range fences {
		if err := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&gf).Error; err != nil {
			return fmt.Errorf("seed geofence %s: %w", gf.Name, err)
		}
	}
	return nil
}
