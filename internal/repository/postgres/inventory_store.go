package postgres

import (
	"github.com/andresuchdata/stockcast/internal/repository"
)

// inventoryStore implements repository.Store on top of the postgres pool.
type inventoryStore struct {
	db *DB
}

func NewInventoryStore(db *DB) repository.Store {
	return &inventoryStore{db: db}
}
