package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanverify/internal/api"
	"loanverify/internal/config"
	"loanverify/internal/container"
	"loanverify/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Close()

	apiServer := api.NewServer(appContainer.Runner, appContainer.Auditor, appContainer.Store,
		api.WithAuditOnApply(appConfig.Audit.OnApply),
		api.WithTimeout(appConfig.Server.RequestTimeout),
		api.WithLogger(appContainer.Logger),
	)

	dashboard, err := ui.NewServer(appContainer.Auditor, appContainer.Store, appContainer.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	servers := []*http.Server{
		{Addr: appConfig.Server.Addr(), Handler: apiServer.Handler(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: appConfig.Server.DashboardAddr(), Handler: dashboard.Handler(), ReadHeaderTimeout: 10 * time.Second},
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Printf("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errs <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down")
	case err := <-errs:
		log.Printf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown of %s: %v", srv.Addr, err)
		}
	}
}
