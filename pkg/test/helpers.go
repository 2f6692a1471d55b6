package test

import (
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"

	"taskmanager/internal/adapter/database/sqlite"
	"taskmanager/internal/core/port"
)

// InitTestDB opens a private in-memory sqlite database with migrations applied.
func InitTestDB() *sqlite.DB {
	db, err := sqlite.Open(sqlite.Options{
		DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	if err != nil {
		log.Fatal(err)
	}
	return db
}

// InitTestStore returns a sqlite store closed when t finishes.
func InitTestStore(t *testing.T) port.TaskStore {
	store := sqlite.NewStore(InitTestDB())
	t.Cleanup(func() { store.Close() })
	return store
}
