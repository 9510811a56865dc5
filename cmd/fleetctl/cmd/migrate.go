package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/internal/infrastructure/migration"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции локальной и удаленной баз",
	Long: `Применяет встроенные миграции к локальной базе SQLite и, если задан
DATABASE_URI, к удаленной базе Postgres. Повторный запуск ничего не меняет.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := clictx.Printer(cmd)

		if err := os.MkdirAll(filepath.Dir(cfg.DB.LocalPath), 0o700); err != nil {
			return fmt.Errorf("ошибка создания каталога базы: %w", err)
		}
		if err := migration.NewSQLite(cfg.DB.LocalPath).Up(); err != nil {
			return fmt.Errorf("ошибка миграции локальной базы: %w", err)
		}
		p.Success("Локальная база: %s", cfg.DB.LocalPath)

		if !cfg.RemoteEnabled() {
			p.Warn("DATABASE_URI не задан, удаленная база пропущена")
			return nil
		}
		if err := migration.NewPostgres(cfg.DB.DatabaseURI).Up(); err != nil {
			return fmt.Errorf("ошибка миграции удаленной базы: %w", err)
		}
		p.Success("Удаленная база обновлена")
		return nil
	},
}
