package sqlite

import (
	"database/sql"
	"fmt"

	"fleetcontrol/internal/infrastructure/migration"

	_ "github.com/mattn/go-sqlite3"
)

// Storage: локальная база устройства
type Storage struct {
	db *sql.DB
}

// New применяет миграции и открывает базу по пути path.
func New(path string) (*Storage, error) {
	if err := migration.NewSQLite(path).Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции локальной базы: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Close() error {
	return s.db.Close()
}
