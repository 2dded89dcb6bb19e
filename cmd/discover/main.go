package main

import (
	"context"
	"flag"
	"log"
	"time"

	"transcript-search/pkg/discover"
)

func main() {
	var (
		feedURL  = flag.String("feed", "", "Podcast RSS/Atom feed URL to read")
		mediaDir = flag.String("media-dir", "media", "Directory receiving the downloaded audio files")
		max      = flag.Int("max", 0, "Max episodes to process (<=0 means no limit)")
		workers  = flag.Int("workers", 4, "Number of parallel download workers")
	)
	flag.Parse()

	svc := discover.New(discover.Config{
		FeedURL:  *feedURL,
		MediaDir: *mediaDir,
		Max:      *max,
		Workers:  *workers,
	})

	start := time.Now()
	results, err := svc.Run(context.Background())
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}

	var downloaded, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case discover.StatusDownloaded:
			downloaded++
			log.Printf("downloaded %s -> %s", r.Title, r.Path)
		case discover.StatusSkipped:
			skipped++
			log.Printf("skipped %s (already present)", r.Title)
		case discover.StatusFailed:
			failed++
			log.Printf("failed %s: %v", r.Title, r.Err)
		}
	}

	log.Printf("Downloaded: %d  Skipped: %d  Failed: %d  Duration: %s",
		downloaded, skipped, failed, time.Since(start))
}
