package cmd

import (
	"fleetcontrol/cmd/fleetctl/cmd/fleet"
	"fleetcontrol/cmd/fleetctl/cmd/records"
	"fleetcontrol/cmd/fleetctl/cmd/stats"
	"fleetcontrol/cmd/fleetctl/cmd/sync"
	"fleetcontrol/cmd/fleetctl/cmd/tenant"
)

func init() {
	rootCmd.AddCommand(tenant.TenantCmd)

	rootCmd.AddCommand(fleet.DriverCmd)
	rootCmd.AddCommand(fleet.TripCmd)
	rootCmd.AddCommand(fleet.AdvanceCmd)
	rootCmd.AddCommand(fleet.FuelCmd)

	rootCmd.AddCommand(records.RecordsCmd)
	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(stats.StatsCmd)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(migrateCmd)
}
