package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// KV is an async-safe key/value store for opaque string values, durable
// across process restarts for every implementation except MemoryStore.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Store is a KV that holds resources.
type Store interface {
	KV
	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Driver string // sqlite, postgres, file or memory
	Path   string // directory for sqlite and file
	DSN    string // postgres connection string
	Prefix string
}

// Open creates the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Driver {
	case "sqlite", "":
		store, err = OpenSQLite(opts.Path)
	case "postgres":
		if err := RunMigrations(opts.DSN); err != nil {
			return nil, err
		}
		store, err = NewPostgres(ctx, opts.DSN)
	case "file":
		store, err = NewFileStore(opts.Path)
	case "memory":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Prefix != "" {
		store = WithPrefix(store, opts.Prefix)
	}
	return store, nil
}

type prefixed struct {
	Store
	prefix string
}

// WithPrefix namespaces every key of s under prefix.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{Store: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.Store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.Store.Remove(ctx, p.prefix+key)
}
