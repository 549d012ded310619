package app

import (
	"fmt"
	"os"

	"github.com/stockpilot/inventory-api/api"
	"github.com/stockpilot/inventory-api/config"
	"github.com/stockpilot/inventory-api/database"
	"github.com/stockpilot/inventory-api/router"
	"github.com/stockpilot/inventory-api/services/cron"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Seed default roles, permissions and the admin user
	if os.Getenv("SEED_ON_STARTUP") != "false" {
		if err := database.NewSeeder(store.GetDB()).SeedAll(); err != nil {
			print("Warning: database seeding failed\n")
			print("Error: ", err.Error(), "\n")
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup routes and shared collaborators
	deps, err := router.SetupRoutes(app, store)
	if err != nil {
		return err
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(deps.DB, deps.Events, deps.Backing)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing DB, cache and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if deps.Cache != nil {
			deps.Cache.Close()
		}
		store.Close()
	}()

	// Get the PORT & start the server
	return server.Run()
}
