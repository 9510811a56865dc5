package fleet

import (
	"fmt"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/internal/domain/fleet"

	"github.com/spf13/cobra"
)

var driverAdd fleet.Driver

var driverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить водителя",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		id, err := app.Fleet.CreateDriver(cmd.Context(), driverAdd)
		if err != nil {
			return fmt.Errorf("ошибка создания водителя: %w", err)
		}
		return printCreated(cmd, "Водитель", id)
	},
}

func init() {
	f := driverAddCmd.Flags()
	f.StringVar(&driverAdd.Name, "name", "", "имя водителя")
	f.StringVar(&driverAdd.Phone, "phone", "", "телефон")
	f.StringVar(&driverAdd.License, "license", "", "номер удостоверения")
	_ = driverAddCmd.MarkFlagRequired("name")
}
