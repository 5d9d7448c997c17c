package database

import (
	"context"
	"database/sql"
	"testing"

	"flower-shop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReportsDownWhenUnreachable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "nobody",
		Password: "nothing",
		Database: "flowers",
		Schema:   "public",
		SSLMode:  "disable",
	}

	db, err := sql.Open("pgx", cfg.DSN())
	require.NoError(t, err)

	svc := Wrap(db)
	defer svc.Close()

	health := svc.Health(context.Background())
	assert.Equal(t, "down", health["status"])
	assert.NotEmpty(t, health["error"])
	assert.Same(t, db, svc.DB())
}

func TestNewFailsWithoutServer(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		User:     "nobody",
		Database: "flowers",
		Schema:   "public",
		SSLMode:  "disable",
	}

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
