package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"transcript-search/pkg/db"
	"transcript-search/pkg/search"
)

func main() {
	var (
		dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		typeArg = flag.String("type", "hybrid", "Search type (fts, trigram, hybrid)")
		limit   = flag.Int("limit", 10, "Max results per method")
	)
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(query) == "" {
		log.Fatal("No query. Usage: transcript-search [flags] <query terms...>")
	}

	typ, err := search.ParseType(*typeArg)
	if err != nil {
		log.Fatalf("Invalid -type: %v", err)
	}

	ctx := context.Background()

	client, err := db.Open(ctx, db.ConnectOptions{DSN: *dsn})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer client.Close()

	svc := search.New(search.DefaultConfig(), db.NewStore(client))

	results, err := svc.Search(ctx, query, typ, *limit)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if len(results.Transcripts) == 0 && len(results.Segments) == 0 {
		fmt.Println("No results.")
		return
	}

	if len(results.Transcripts) > 0 {
		fmt.Printf("Transcripts (%d):\n\n", len(results.Transcripts))
		for i, hit := range results.Transcripts {
			fmt.Printf("%d. %s (%s, rank %.3f)\n", i+1, hit.Title, hit.SourceID, hit.Rank)
			if hit.Headline != "" {
				fmt.Printf("   %s\n", hit.Headline)
			}
			fmt.Println()
		}
	}

	if len(results.Segments) > 0 {
		fmt.Printf("Segments (%d):\n\n", len(results.Segments))
		for i, hit := range results.Segments {
			fmt.Printf("%d. [%s #%d @%dms] %s (similarity %.3f)\n",
				i+1, hit.SourceID, hit.SegmentIndex, hit.StartMS, hit.Text, hit.Similarity)
		}
	}
}
