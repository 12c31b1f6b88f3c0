package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/auth"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/config"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/db"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/excel"
	httphandler "github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/http"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/http/middleware"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/logger"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/notify"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/pdf"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "engagement-service",
	Short: "Project, package and hour ledger lifecycle service",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")
		return serve(migrate)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, database, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.Migrate(database); err != nil {
			return err
		}
		log.Info().Str("environment", cfg.Environment).Msg("schema migrated")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "run migrations before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Environment, cfg.Log)
	database, err := db.New(cfg, log)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, database, nil
}

func serve(migrate bool) error {
	cfg, log, database, err := bootstrap()
	if err != nil {
		return err
	}
	if migrate {
		if err := db.Migrate(database); err != nil {
			return err
		}
	}

	var notifier service.Notifier = notify.NewLogSender(log)
	if cfg.Notify.URL != "" {
		notifier = notify.NewHTTPSender(cfg.Notify.URL, cfg.Notify.Timeout, log)
	}

	tx := repository.NewTransactor(database)
	accounts := repository.NewAccountRepository(database)
	projects := repository.NewProjectRepository(database)
	packages := repository.NewPackageRepository(database)
	availability := repository.NewAvailabilityRepository(database)
	solicitudes := repository.NewSolicitudRepository(database)

	consequences := service.NewConsequenceDispatcher(accounts, notifier, log)
	services := httphandler.Services{
		Projects:     service.NewProjectService(tx, projects, accounts, consequences, notifier, log),
		Packages:     service.NewPackageService(tx, packages, accounts, pdf.NewGenerator(), excel.NewGenerator(), notifier, log),
		Scheduling:   service.NewSchedulingService(tx, packages, accounts, notifier, log, cfg.Scheduling.SlotMinutes),
		Availability: service.NewAvailabilityService(availability, packages, accounts, cfg.Scheduling.SlotMinutes),
		Ledger:       service.NewLedgerService(tx, solicitudes, accounts, notifier, log),
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(services, log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting engagement service")
	return router.Run(addr)
}
