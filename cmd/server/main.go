// Package main is the entry point for the OnAir broadcast console server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/openairwaves/onair-go/internal/api"
	"github.com/openairwaves/onair-go/internal/config"
	"github.com/openairwaves/onair-go/internal/database"
	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
	"github.com/openairwaves/onair-go/internal/services/broadcast"
	"github.com/openairwaves/onair-go/internal/services/mixer"
	"github.com/openairwaves/onair-go/internal/services/permissions"
	"github.com/openairwaves/onair-go/internal/services/pubsub"
	"github.com/openairwaves/onair-go/internal/services/schedule"
	"github.com/openairwaves/onair-go/internal/ws"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	// Connect to database
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	// Auto-migrate database schema
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&models.BroadcastSession{},
		&models.TimeSlot{},
		&models.UserRole{},
		&models.EmergencyBroadcast{},
		&models.AuditEntry{},
		&models.Setting{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	// Repositories
	sessionRepo := repositories.NewSessionRepository(db)
	slotRepo := repositories.NewTimeSlotRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	emergencyRepo := repositories.NewEmergencyRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	settingRepo := repositories.NewSettingRepository(db)

	// Core services
	resolver := permissions.NewResolver(roleRepo)
	gate := schedule.NewGate(slotRepo, resolver, cfg.Location())
	events := pubsub.New()
	broadcastService := broadcast.NewService(
		sessionRepo, emergencyRepo, resolver, gate,
		broadcast.NewDatabaseSink(auditRepo), events,
	)

	// Hardware bridge: controller input flows into the broadcast service on
	// behalf of whoever connected the device.
	mixerService := mixer.NewService(nil, nil, mixer.Callbacks{
		OnControlChange: func(operatorID string, control mixer.Control, value int) {
			broadcastService.LogControlChange(context.Background(), operatorID, string(control), value)
		},
		OnGoLive: func(operatorID string) error {
			_, err := broadcastService.Start(context.Background(), operatorID, models.SessionTypeLive)
			return err
		},
		OnStop: func(operatorID string) error {
			_, err := broadcastService.End(context.Background(), operatorID)
			return err
		},
		OnDisconnect: func(device mixer.Device) {
			events.PublishAll(pubsub.TopicSystemInfo, map[string]string{
				"event":  "device_disconnected",
				"device": device.Name,
			})
		},
	})
	defer mixerService.Disconnect()

	if cfg.MixerEnabled {
		if _, err := mixerService.ScanForDevices(context.Background()); err != nil {
			log.Printf("Warning: hardware device scan failed: %v", err)
			// Continue anyway - the console works without hardware
		}
		if cfg.MixerScanInterval > 0 {
			go rescanLoop(mixerService, cfg.MixerScanInterval)
		}

		// Reconnect the device that was in use before the last shutdown.
		if saved, err := settingRepo.FindByKey(context.Background(), "hardware_device_id"); err == nil && saved != nil && saved.Value != "" {
			log.Printf("🎛️  Reconnecting saved hardware device: %s", saved.Value)
			if err := mixerService.Connect(context.Background(), saved.Value); err != nil {
				log.Printf("Warning: failed to reconnect saved device: %v", err)
			}
		}
	}

	// WebSocket fanout
	hub := ws.NewHub(events, cfg.WSBufferSize, func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	})

	// Create router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		Debug:            cfg.IsDevelopment(),
	})
	router.Use(corsMiddleware.Handler)

	// Routes
	handler := api.NewHandler(broadcastService, mixerService, gate, settingRepo)
	router.Mount("/", handler.Routes(hub))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		log.Printf("WebSocket endpoint: ws://localhost:%s/ws\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	mixerService.Disconnect()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// rescanLoop periodically refreshes the hardware device list so controllers
// plugged in after startup show up without a manual rescan.
func rescanLoop(mixerService *mixer.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := mixerService.ScanForDevices(context.Background()); err != nil {
			log.Printf("Warning: hardware device scan failed: %v", err)
		}
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Printf("  %s Broadcast Console\n", cfg.StationName)
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Mixer:       %v\n", cfg.MixerEnabled)
	fmt.Println("============================================")
}
