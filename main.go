package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/castusphanik/lucky-backend-sub000/internal/config"
	"github.com/castusphanik/lucky-backend-sub000/internal/db"
	"github.com/castusphanik/lucky-backend-sub000/internal/fleet"
	"github.com/castusphanik/lucky-backend-sub000/internal/logging"
	"github.com/castusphanik/lucky-backend-sub000/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatal("Failed to init logger: ", err)
	}
	defer logger.Sync()

	db.Connect()
	fleet.Init()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Metrics)

	r.Get("/", RootHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/geofences", fleet.GeofenceRoutes(middleware.BearerAuth(cfg.Auth)))
	r.Mount("/equipment", fleet.EquipmentRoutes(middleware.RateLimit(cfg.Feed)))

	logger.Info("server listening", zap.String("port", cfg.Port))

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
