package postgres

import (
	"context"
	"fmt"

	"fleetcontrol/internal/infrastructure/migration"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage - пул соединений удаленного хранилища документов.
type Storage struct {
	pool *pgxpool.Pool
}

// New применяет миграции удаленной схемы и открывает пул.
func New(ctx context.Context, databaseURI string) (*Storage, error) {
	if err := migration.NewPostgres(databaseURI).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}
