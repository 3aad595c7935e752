package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"tcg-arbitrage/internal/config"
	"tcg-arbitrage/internal/database"
	"tcg-arbitrage/internal/models"
	"tcg-arbitrage/internal/services/tcgio"
	"tcg-arbitrage/internal/store"

	"github.com/joho/godotenv"
)

var (
	reset     = flag.Bool("reset", false, "restart seeding from the first set")
	batchSize = flag.Int("batch", 25, "number of sets to process per run")
	graded    = flag.Bool("graded", false, "also fetch PSA graded prices (needs PRICETRACKER_API_KEY)")
	dbURL     = flag.String("db", "", "database connection string (overrides DATABASE_URL)")
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
	client := tcgio.NewClient(cfg.PokemonTCGAPIKey, cfg.PriceTrackerAPIKey)
	ctx := context.Background()

	sets, err := client.Sets()
	if err != nil {
		log.Fatal("Failed to fetch sets:", err)
	}
	log.Printf("Fetched %d sets", len(sets))

	startIndex := 0
	if !*reset {
		settings, err := st.Get(ctx)
		if err != nil {
			log.Fatal("Failed to load settings:", err)
		}
		startIndex = settings.LastSeedIndex
	}
	if startIndex >= len(sets) {
		startIndex = 0
	}

	end := startIndex + *batchSize
	if end > len(sets) {
		end = len(sets)
	}

	totalCards := 0
	for i := startIndex; i < end; i++ {
		set := sets[i]
		log.Printf("Seeding set %d/%d: %s", i+1, len(sets), set.Name)

		if err := st.UpsertSet(ctx, set); err != nil {
			log.Printf("skipping set %s: %v", set.ID, err)
			continue
		}

		count, err := seedSet(ctx, st, client, set)
		if err != nil {
			log.Printf("set %s partially seeded: %v", set.ID, err)
		}
		totalCards += count

		progress, _ := json.Marshal(map[string]interface{}{
			"current":    i + 1,
			"total":      len(sets),
			"currentSet": set.Name,
			"totalCards": totalCards,
		})
		if err := st.SeedProgress(ctx, i+1, string(progress)); err != nil {
			log.Printf("failed to save seed progress: %v", err)
		}
	}

	// Wrap around once all sets are done so the next run starts over.
	if end >= len(sets) {
		if err := st.SeedProgress(ctx, 0, ""); err != nil {
			log.Printf("failed to reset seed cursor: %v", err)
		}
	}
	log.Printf("Seeded %d cards across %d sets", totalCards, end-startIndex)
}

// seedSet ingests one set's cards and replaces each card's snapshots per
// source. Snapshots are superseded wholesale, never merged.
func seedSet(ctx context.Context, st *store.Store, client *tcgio.Client, set models.CardSet) (int, error) {
	total := 0
	for page := 1; ; page++ {
		cards, snapshots, hasMore, err := client.CardsForSet(set.ID, page)
		if err != nil {
			return total, err
		}
		if err := st.UpsertCards(ctx, cards); err != nil {
			return total, err
		}

		bySource := make(map[string]map[string][]models.PriceSnapshot)
		for _, snap := range snapshots {
			if bySource[snap.CardID] == nil {
				bySource[snap.CardID] = make(map[string][]models.PriceSnapshot)
			}
			bySource[snap.CardID][snap.Source] = append(bySource[snap.CardID][snap.Source], snap)
		}
		for cardID, sources := range bySource {
			for source, snaps := range sources {
				if err := st.ReplaceSnapshots(ctx, cardID, source, snaps); err != nil {
					log.Printf("failed to store snapshots for %s/%s: %v", cardID, source, err)
				}
			}
		}

		if *graded {
			for _, card := range cards {
				gradedSnaps, err := client.GradedPrices(card.ID)
				if err != nil {
					log.Printf("failed to fetch graded prices for %s: %v", card.ID, err)
					continue
				}
				if len(gradedSnaps) == 0 {
					continue
				}
				if err := st.ReplaceSnapshots(ctx, card.ID, models.SourcePriceTracker, gradedSnaps); err != nil {
					log.Printf("failed to store graded snapshots for %s: %v", card.ID, err)
				}
			}
		}

		total += len(cards)
		if !hasMore {
			return total, nil
		}
	}
}
