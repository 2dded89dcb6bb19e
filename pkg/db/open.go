package db

import (
	"context"
	"fmt"
)

// Client is the common surface of the database clients usable by the
// transcript store.
type Client interface {
	DBProvider
	Close() error
}

// ConnectOptions selects and configures a database backend. A Supabase
// project URL switches to the Supabase client; otherwise a plain Postgres
// DSN is required.
type ConnectOptions struct {
	DSN string

	SupabaseURL      string
	SupabaseKey      string
	SupabasePassword string

	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to the configured backend and returns a ready client.
func Open(ctx context.Context, opts ConnectOptions) (Client, error) {
	if opts.SupabaseURL != "" {
		client := NewSupabaseClient(SupabaseConfig{
			SupabaseURL:  opts.SupabaseURL,
			SupabaseKey:  opts.SupabaseKey,
			Password:     opts.SupabasePassword,
			MaxOpenConns: opts.MaxOpenConns,
			MaxIdleConns: opts.MaxIdleConns,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}

	if opts.DSN == "" {
		return nil, fmt.Errorf("database DSN is required (set -dsn or DATABASE_URL)")
	}

	client := NewPostgresClient(PostgresConfig{
		DSN:          opts.DSN,
		MaxOpenConns: opts.MaxOpenConns,
		MaxIdleConns: opts.MaxIdleConns,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
