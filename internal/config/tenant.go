package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveTenant записывает tenant_id в файл конфигурации, сохраняя остальные ключи.
// Если файла еще нет, создает config.yaml в каталоге конфигурации.
func (c *Config) SaveTenant(tenantID string) error {
	path := c.FilePath
	if path == "" {
		path = filepath.Join(c.Dir, "config.yaml")
	}

	values := map[string]any{}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if values == nil {
			values = map[string]any{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read %s: %w", path, err)
	}

	values["tenant_id"] = tenantID
	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	c.Device.TenantID = tenantID
	c.FilePath = path
	return nil
}
