package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/labtrack/labtrack-auth/auth"
	sqliteequipmentrepo "github.com/labtrack/labtrack-auth/equipment/reposqlite"
	"github.com/labtrack/labtrack-auth/internal/config"
	"github.com/labtrack/labtrack-auth/server"
	sqliteuserrepo "github.com/labtrack/labtrack-auth/users/reposqlite"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	if err := os.MkdirAll(c.GetDataFolder(), 0o755); err != nil {
		return fmt.Errorf("create data folder: %w", err)
	}

	sqlDB, err := sqliteuserrepo.OpenDB(c.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	userRepo, err := sqliteuserrepo.NewWithDB(sqlDB)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	equipmentRepo, err := sqliteequipmentrepo.NewWithDB(sqlDB)
	if err != nil {
		return fmt.Errorf("open equipment store: %w", err)
	}

	srv, err := server.New(c, auth.Repos{Users: userRepo}, equipmentRepo, auth.WithLogger(log.Logger))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
