package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type outcomeRow struct {
	Ticker         string
	Classification string
	SmartScore     int
	PnLPercent     float64
	Success        bool
	HoldingHours   float64
}

type scoreBucket struct {
	Label        string
	Min, Max     int
	Total        int
	Wins         int
	TotalPnL     float64
	TotalHolding float64
}

func main() {
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "equity_signals")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SIGNAL OUTCOME ANALYSIS BY SMART SCORE BAND")
	fmt.Println(strings.Repeat("=", 80))

	query := `
		SELECT ticker, classification, smart_score,
		       COALESCE(pnl_percent, 0), success, COALESCE(holding_hours, 0)
		FROM signal_outcomes
		ORDER BY closed_at DESC
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var outcomes []outcomeRow
	for rows.Next() {
		var o outcomeRow
		if err := rows.Scan(&o.Ticker, &o.Classification, &o.SmartScore, &o.PnLPercent, &o.Success, &o.HoldingHours); err != nil {
			fmt.Printf("Scan failed: %v\n", err)
			os.Exit(1)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		fmt.Printf("Row iteration failed: %v\n", err)
		os.Exit(1)
	}

	if len(outcomes) == 0 {
		fmt.Println("No recorded outcomes yet.")
		return
	}

	buckets := []scoreBucket{
		{Label: "90-100", Min: 90, Max: 100},
		{Label: "80-89", Min: 80, Max: 89},
		{Label: "70-79", Min: 70, Max: 79},
		{Label: "60-69", Min: 60, Max: 69},
		{Label: "50-59", Min: 50, Max: 59},
		{Label: "<50", Min: 0, Max: 49},
	}

	for _, o := range outcomes {
		for i := range buckets {
			if o.SmartScore >= buckets[i].Min && o.SmartScore <= buckets[i].Max {
				buckets[i].Total++
				if o.Success {
					buckets[i].Wins++
				}
				buckets[i].TotalPnL += o.PnLPercent
				buckets[i].TotalHolding += o.HoldingHours
				break
			}
		}
	}

	fmt.Printf("\nTotal outcomes: %d\n\n", len(outcomes))
	fmt.Printf("%-8s %8s %8s %10s %10s %12s\n", "Band", "Count", "Wins", "Win Rate", "Avg P&L", "Avg Holding")
	fmt.Println(strings.Repeat("-", 62))

	for _, b := range buckets {
		if b.Total == 0 {
			continue
		}
		winRate := float64(b.Wins) / float64(b.Total) * 100
		avgPnL := b.TotalPnL / float64(b.Total)
		avgHolding := b.TotalHolding / float64(b.Total)
		fmt.Printf("%-8s %8d %8d %9.1f%% %9.2f%% %10.1fh\n",
			b.Label, b.Total, b.Wins, winRate, avgPnL, avgHolding)
	}

	// The board's own claim is that higher bands should win more often.
	// A lower band beating a higher one on a decent sample is the thing
	// worth flagging.
	fmt.Println()
	var prev *scoreBucket
	for i := range buckets {
		b := &buckets[i]
		if b.Total < 10 {
			continue
		}
		if prev != nil {
			prevRate := float64(prev.Wins) / float64(prev.Total) * 100
			rate := float64(b.Wins) / float64(b.Total) * 100
			if rate > prevRate {
				fmt.Printf("NOTE: band %s (%.1f%%) outperforms band %s (%.1f%%)\n",
					b.Label, rate, prev.Label, prevRate)
			}
		}
		prev = b
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
