// Command seed creates the CDP schema and fills the raw tables with fake data.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdp-analytics/config"
	"cdp-analytics/models"
	"cdp-analytics/services"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

func main() {
	defaults := services.DefaultSeedCounts()
	counts := defaults

	flag.IntVar(&counts.Customers, "customers", defaults.Customers, "Number of customers")
	flag.IntVar(&counts.Products, "products", defaults.Products, "Number of products")
	flag.IntVar(&counts.Campaigns, "campaigns", defaults.Campaigns, "Number of marketing campaigns")
	flag.IntVar(&counts.Purchases, "purchases", defaults.Purchases, "Number of purchase transactions")
	flag.IntVar(&counts.SupportInteractions, "support", defaults.SupportInteractions, "Number of customer service interactions")
	flag.IntVar(&counts.CampaignResponses, "responses", defaults.CampaignResponses, "Number of campaign responses")
	flag.IntVar(&counts.WebSessions, "sessions", defaults.WebSessions, "Number of website sessions")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	batch := flag.Int("batch", 500, "Insert batch size")
	reset := flag.Bool("reset", false, "Truncate the raw tables before seeding")
	schemaOnly := flag.Bool("schema-only", false, "Create the schema and exit")
	quiet := flag.Bool("q", false, "Hide the progress bar")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer config.CloseDB(db)

	if err := models.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}
	logger.Info("Schema ready")
	if *schemaOnly {
		return
	}

	seeder := services.NewSeeder(db, *seed, *batch, logger)
	if *reset {
		if err := seeder.Reset(ctx); err != nil {
			logger.Fatal("Failed to reset raw tables", zap.Error(err))
		}
		logger.Info("Raw tables truncated")
	}

	if !*quiet {
		bar := progressbar.NewOptions(counts.Total(),
			progressbar.OptionSetDescription("seeding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { os.Stderr.WriteString("\n") }),
		)
		seeder.Progress = func(_ string, rows int) { bar.Add(rows) }
	}

	start := time.Now()
	if err := seeder.Seed(ctx, counts); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeding complete",
		zap.Int("rows", counts.Total()),
		zap.Int64("seed", *seed),
		zap.Duration("took", time.Since(start)))
}
