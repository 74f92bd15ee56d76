package main

import (
	"fmt"
	"log"

	"github.com/castusphanik/lucky-backend-sub000/internal/db"
	"github.com/castusphanik/lucky-backend-sub000/internal/fleet"
	"github.com/castusphanik/lucky-backend-sub000/internal/seeds"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	db.Connect()
	fleet.Init()

	if err := seeds.SeedAll(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println("✓ Seeded demo accounts, equipment and geofences")
}
