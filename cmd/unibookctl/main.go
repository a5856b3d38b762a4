package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/unibook/internal/config"
	"github.com/joshua-takyi/unibook/internal/connect"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "unibookctl",
	Short:        "Operator tasks for the unibook booking service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			_ = godotenv.Load(envFile)
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env.local", "dotenv file to load before reading configuration")
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(ensureIndexesCmd())
	rootCmd.AddCommand(notifyWorkerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every subcommand needs. close must be called when done.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	mongo  *mongo.Client
	repo   *models.MongodbRepo
}

func (e *env) close() {
	if e.mongo != nil {
		_ = connect.MongoDBDisconnect(e.mongo)
	}
	_ = e.logger.Sync()
}

func setup(ctx context.Context, withMongo bool) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := connect.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger}
	if !withMongo {
		return e, nil
	}

	client, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e.mongo = client
	e.repo = models.MongodbNewRepo(client, cfg.MongoDBName, cfg.MongoDBTransactions)
	return e, nil
}
