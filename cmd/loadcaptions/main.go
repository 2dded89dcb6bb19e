package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"transcript-search/pkg/db"
	"transcript-search/pkg/loader"
)

func main() {
	var (
		captionsDir = flag.String("captions-dir", "captions", "Directory containing <stem>.srt / <stem>.txt caption pairs")
		dryRun      = flag.Bool("dry-run", false, "Parse and report without writing to the database")
		overwrite   = flag.Bool("overwrite", false, "Update transcripts whose source identifier already exists")
		initSchema  = flag.Bool("init-schema", false, "Create the transcript tables and indexes before loading")

		dsn              = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		supabaseURL      = flag.String("supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL (uses Supabase instead of -dsn)")
		supabaseKey      = flag.String("supabase-key", os.Getenv("SUPABASE_KEY"), "Supabase service key")
		supabasePassword = flag.String("supabase-password", os.Getenv("SUPABASE_DB_PASSWORD"), "Supabase database password")
	)
	flag.Parse()

	ctx := context.Background()

	client, err := db.Open(ctx, db.ConnectOptions{
		DSN:              *dsn,
		SupabaseURL:      *supabaseURL,
		SupabaseKey:      *supabaseKey,
		SupabasePassword: *supabasePassword,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := db.NewStore(client)
	if *initSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("Schema is up to date")
	}

	l := loader.New(loader.Config{
		Dir:       *captionsDir,
		DryRun:    *dryRun,
		Overwrite: *overwrite,
	}, store)

	start := time.Now()
	results, err := l.Run(ctx)
	if err != nil {
		client.Close()
		log.Fatalf("Load failed: %v", err)
	}

	summary := loader.Summarize(results)
	log.Printf("%s  Duration: %s", summary, time.Since(start))

	// log.Fatalf and os.Exit skip deferred calls, so the pool is released
	// explicitly on every exit path.
	client.Close()

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
