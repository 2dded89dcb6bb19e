package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"transcript-search/pkg/api"
	"transcript-search/pkg/db"
	"transcript-search/pkg/search"
)

func main() {
	var (
		addr = flag.String("addr", ":8080", "HTTP listen address")

		dsn              = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		supabaseURL      = flag.String("supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL (uses Supabase instead of -dsn)")
		supabaseKey      = flag.String("supabase-key", os.Getenv("SUPABASE_KEY"), "Supabase service key")
		supabasePassword = flag.String("supabase-password", os.Getenv("SUPABASE_DB_PASSWORD"), "Supabase database password")

		enableFTS     = flag.Bool("enable-fts", true, "Enable full-text transcript search")
		enableTrigram = flag.Bool("enable-trigram", true, "Enable trigram segment search")
		defaultType   = flag.String("default-type", "hybrid", "Default search type (fts, trigram, hybrid)")
	)
	flag.Parse()

	typ, err := search.ParseType(*defaultType)
	if err != nil {
		log.Fatalf("Invalid -default-type: %v", err)
	}

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
	defer client.Close()

	store := db.NewStore(client)
	svc := search.New(search.Config{
		FullTextEnabled: *enableFTS,
		TrigramEnabled:  *enableTrigram,
		DefaultType:     typ,
	}, store)

	server := api.NewServer(svc, store)

	log.Printf("Search API listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
