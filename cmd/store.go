package main

import (
	"context"

	"github.com/rxhuang/fp-null-pointer/internal/store"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
