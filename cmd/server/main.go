package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/wayfarer-backend/internal/bootstrap"
	"github.com/AnshRaj112/wayfarer-backend/internal/config"
	"github.com/AnshRaj112/wayfarer-backend/internal/handlers"
	"github.com/AnshRaj112/wayfarer-backend/internal/middleware"
	"github.com/AnshRaj112/wayfarer-backend/internal/routes"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	rt, err := bootstrap.Start(cfg)
	if err != nil {
		log.Println("\nTroubleshooting tips:")
		log.Println("1. Check that MONGODB_URI points at a running MongoDB")
		log.Println("2. ENCRYPTION_KEY must be base64-encoded 32 bytes")
		log.Fatal("Failed to start: ", err)
	}
	defer rt.Close()

	app := rt.App
	app.Session.OnTeardown(func(identity string) {
		log.Printf("Session of %s ended, next request resolves a new identity", identity)
	})

	// Resolve the identity before the shell's first request
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	recovered := app.Recovery.CheckRecovery(ctx)
	cancel()
	if st := app.Recovery.Status(); st.LastError != "" {
		log.Printf("⚠️  WARNING: identity resolution degraded: %s", st.LastError)
	}
	log.Printf("✅ Running as %s (recovered: %v)", app.Session.Identity(), recovered)

	// Follow recoveries and clears done by wayfarerctl on this install
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	app.Recovery.Listen(listenCtx)

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	for _, mw := range middleware.Bridge(middleware.LocalHosts) {
		r.Use(mw)
	}
	routes.SetupRoutes(r, handlers.NewAPI(app, rt.Client))

	// The bridge is only reachable from this device
	addr := "127.0.0.1:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s (env: %s)", addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  shutdown: %v", err)
	}
	log.Println("Server stopped")
}
