package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"tcg-arbitrage/internal/config"
	"tcg-arbitrage/internal/database"
	"tcg-arbitrage/internal/store"

	"github.com/joho/godotenv"
	"github.com/xuri/excelize/v2"
)

var (
	output = flag.String("o", "", "output file path (default opportunities_<date>.xlsx)")
	minRoi = flag.Float64("min-roi", 0, "only export rows with at least this ROI")
	limit  = flag.Int("limit", 100, "maximum rows to export")
	dbURL  = flag.String("db", "", "database connection string (overrides DATABASE_URL)")
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
	rows, err := st.CachedOpportunities(context.Background(), *minRoi, "opportunityScore", "desc", *limit)
	if err != nil {
		log.Fatal("Failed to load opportunity cache:", err)
	}
	if len(rows) == 0 {
		log.Fatal("Opportunity cache is empty, run the recalculate tool first")
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Opportunities"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Card", "Set", "Rarity",
		"Buy Price", "Buy Source", "Buy Currency",
		"Sell Price", "Sell Source", "Sell Currency",
		"Spread", "Net Profit", "ROI %", "Momentum %", "Liquidity", "Score",
		"FX Rate", "Calculated At",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00

	for i, row := range rows {
		values := []interface{}{
			row.CardName, row.SetName, row.Rarity,
			row.BuyPrice, row.BuySource, row.BuyCurrency,
			row.SellPrice, row.SellSource, row.SellCurrency,
			row.Spread, row.NetProfit, row.Roi, row.Momentum, row.Liquidity, row.OpportunityScore,
			row.FxRate, row.CalculatedAt.Format("2006-01-02 15:04"),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	lastRow := len(rows) + 1
	f.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", lastRow), moneyStyle)
	f.SetCellStyle(sheet, "G2", fmt.Sprintf("G%d", lastRow), moneyStyle)
	f.SetCellStyle(sheet, "J2", fmt.Sprintf("O%d", lastRow), moneyStyle)
	f.AutoFilter(sheet, fmt.Sprintf("A1:Q%d", lastRow), nil)
	f.SetColWidth(sheet, "A", "A", 32)
	f.SetColWidth(sheet, "B", "B", 24)

	path := *output
	if path == "" {
		path = fmt.Sprintf("opportunities_%s.xlsx", time.Now().Format("20060102"))
	}
	if err := f.SaveAs(path); err != nil {
		log.Fatal("Failed to write workbook:", err)
	}
	log.Printf("Exported %d opportunities to %s", len(rows), path)
}
