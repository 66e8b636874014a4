package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/repository"
	"github.com/rezonia/parcel-audit/internal/server"
)

var (
	serveAddress string
	serveDebug   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit HTTP API",
	Long: `Start the HTTP API exposing batch auditing and DAS classification.

Endpoints:
  GET  /health
  POST /api/v1/audit
  POST /api/v1/das/ingest
  GET  /api/v1/das/classify?zip=83716&as_of=2025-01-06
  GET  /api/v1/das/export

With --das-db the table is preloaded from SQLite at startup.

Examples:
  parcel-audit serve --address :8080
  parcel-audit serve --das-db das.sqlite --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddress, "address", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	var table *das.Table
	if dasDBPath != "" {
		db, err := repository.InitDB(dasDBPath)
		if err != nil {
			return err
		}
		table, err = repository.NewDASRepo(db).LoadTable()
		db.Close()
		if err != nil {
			return fmt.Errorf("load DAS table: %w", err)
		}
		printVerbose("Loaded DAS table covering %d ZIPs\n", table.Len())
	}

	srv := server.NewServer(&server.Config{
		Address:      serveAddress,
		Version:      version,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		Debug:        serveDebug,
	}, table)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Listening on %s\n", serveAddress)
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		fmt.Println("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
