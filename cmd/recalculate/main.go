package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tcg-arbitrage/internal/analyzer"
	"tcg-arbitrage/internal/config"
	"tcg-arbitrage/internal/database"
	"tcg-arbitrage/internal/store"

	"github.com/joho/godotenv"
)

var (
	once     = flag.Bool("once", false, "run a single recompute and exit")
	interval = flag.Duration("interval", 30*time.Minute, "time between recomputes")
	topN     = flag.Int("top", analyzer.DefaultTopN, "number of opportunities to keep in the cache")
	dbURL    = flag.String("db", "", "database connection string (overrides DATABASE_URL)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	st := store.New(db)
	builder := analyzer.NewCacheBuilder(st, st, st)
	builder.TopN = *topN

	run := func() {
		start := time.Now()
		count, err := builder.Recompute(context.Background())
		if err != nil {
			log.Printf("recompute failed: %v", err)
			return
		}
		log.Printf("recompute done: %d opportunities cached in %s", count, time.Since(start).Round(time.Millisecond))
	}

	run()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		run()
	}
}
