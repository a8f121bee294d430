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

	"github.com/gin-gonic/gin"

	"booklend/internal/config"
	"booklend/internal/database"
	"booklend/internal/handlers"
	"booklend/internal/repositories"
	"booklend/internal/services"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
	}

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	ledgerRepo := repositories.NewUserBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	router := gin.Default()

	handlers.RegisterRoutes(router, handlers.Dependencies{
		DB:         db,
		JWTSecret:  cfg.JWTSecret,
		Users:      userRepo,
		Loans:      services.NewLoanService(db, userRepo, bookRepo, ledgerRepo, loanRepo),
		Collection: services.NewCollectionService(db, bookRepo, ledgerRepo, loanRepo),
		Stats:      services.NewStatsService(db, userRepo, ledgerRepo, loanRepo),
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[WARN] shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
