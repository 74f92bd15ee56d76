package fleet

import (
	"log"

	"github.com/castusphanik/lucky-backend-sub000/internal/db"
	"go.uber.org/zap"
)

// svc is the package-level service the handlers dispatch to.
// It is initialized in Init() against the shared database handle;
// tests swap it for one backed by a mock store.
var svc *Service

func Init() {
	// Ensure the fleet schema exists first
	if err := db.EnsureSchema(db.DB, "fleet"); err != nil {
		log.Fatal("Failed to create fleet schema: ", err)
	}

	if err := db.DB.AutoMigrate(
		&Account{},
		&Equipment{},
		&Geofence{},
		&EquipmentLocation{},
		&EquipmentLocationHistory{},
		&GeofenceMembership{},
		&GeofenceEvent{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	svc = NewService(NewStore(db.DB), zap.L())
}

// Svc exposes the initialized service to the CLI tools.
func Svc() *Service {
	if svc == nil {
		log.Fatal("fleet.Init must run before fleet.Svc")
	}
	return svc
}
