package main

import (
	"context"
	"fmt"
	"log"

	"github.com/castusphanik/lucky-backend-sub000/internal/db"
	"github.com/castusphanik/lucky-backend-sub000/internal/fleet"
	"github.com/joho/godotenv"
)

// The per-equipment geofence_ids array is a derived cache of the
// allocation→account→geofence relationship. It is rebuilt automatically on
// geofence create/update, but drifts when an allocation changes without a
// geofence write. This tool recomputes it for the whole fleet.
func main() {
	_ = godotenv.Load(".env.local")

	db.Connect()
	fleet.Init()

	updated, err := fleet.Svc().RebuildAllAssociations(context.Background())
	if err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}

	fmt.Printf("✓ Rebuilt geofence associations for %d equipment units\n", updated)
}
