package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"taskmanager/internal/adapter/database/postgres"
	"taskmanager/internal/adapter/database/storetest"
	"taskmanager/internal/core/port"
)

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TASKS_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TASKS_TEST_POSTGRES_URL not set")
	}

	suite.Run(t, &storetest.StoreSuite{
		NewStore: func() port.TaskStore {
			ctx := context.Background()
			db, err := postgres.NewDB(ctx, url)
			if err != nil {
				t.Fatalf("connect postgres: %v", err)
			}
			if _, err := db.Exec(ctx, "TRUNCATE tasks"); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			return postgres.NewStore(db)
		},
	})
}
