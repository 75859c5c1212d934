// Command seed loads the sample organisation into the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/container"
	"github.com/garyjia/expense-approval/internal/seed"
	"github.com/garyjia/expense-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	password := flag.String("password", "", "credential for every sample user (defaults to seed.password)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *password != "" {
		cfg.Seed.Password = *password
	}
	if cfg.Seed.Password == "" {
		fmt.Fprintln(os.Stderr, "A password is required: pass -password or set SEED_PASSWORD")
		os.Exit(1)
	}
	// The container must not seed on its own, this command does it explicitly
	cfg.Seed.Enabled = false

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
		Service:    "expense-seed",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	services := c.Services()
	loader := seed.NewLoader(services.Directory, services.Engine, services.Hasher, utils.NewKVLogger(logger.Named("seed")))
	result, err := loader.Load(ctx, cfg.Seed.Password)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		return
	}

	if result.Skipped {
		fmt.Println("Store already has users, nothing seeded")
		return
	}
	fmt.Printf("Seeded %d users and %d expenses into %s\n", result.Users, result.Expenses, cfg.Database.Path)
}
