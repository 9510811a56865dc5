package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchTenant следит за файлом конфигурации и вызывает fn, когда в нем меняется tenant_id.
// Без файла конфигурации ничего не делает.
func (c *Config) WatchTenant(fn func(tenantID string)) {
	if c.FilePath == "" {
		return
	}
	current := c.Device.TenantID
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next := viper.GetString("TENANT_ID")
		if next == current {
			return
		}
		current = next
		c.Device.TenantID = next
		fn(next)
	})
	viper.WatchConfig()
}
