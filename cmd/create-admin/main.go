// Command create-admin seeds the "admin" CCO account. Running it again is a
// no-op.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/ciclus/rd-dashboard/config"
	"github.com/ciclus/rd-dashboard/database"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/utils"
)

func main() {
	name := flag.String("name", "Administrador CCO", "display name of the account")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "initial password (default $ADMIN_PASSWORD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)

	if *password == "" {
		utils.ErrorLogger.Fatal("a password is required: use -password or ADMIN_PASSWORD")
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := repository.NewUserRepository(db).EnsureAdmin(ctx, *name, *password)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to create admin: %v", err)
	}
	if created {
		utils.InfoLogger.Info("admin account created")
		return
	}
	utils.InfoLogger.Info("admin account already exists")
}
