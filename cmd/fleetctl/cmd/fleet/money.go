package fleet

import (
	"fmt"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/internal/domain/fleet"

	"github.com/spf13/cobra"
)

var (
	advanceAdd  fleet.Advance
	fuelAdd     fleet.Fuel
	fuelRequest fleet.FuelRequest
)

var advanceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Выдать аванс водителю",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		if advanceAdd.Date == "" {
			advanceAdd.Date = today()
		}
		id, err := app.Fleet.CreateAdvance(cmd.Context(), advanceAdd)
		if err != nil {
			return fmt.Errorf("ошибка создания аванса: %w", err)
		}
		return printCreated(cmd, "Аванс", id)
	},
}

var fuelAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить заправку",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		if fuelAdd.Date == "" {
			fuelAdd.Date = today()
		}
		id, err := app.Fleet.CreateFuel(cmd.Context(), fuelAdd)
		if err != nil {
			return fmt.Errorf("ошибка создания заправки: %w", err)
		}
		return printCreated(cmd, "Заправка", id)
	},
}

var fuelRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Запросить топливо",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		if fuelRequest.Date == "" {
			fuelRequest.Date = today()
		}
		id, err := app.Fleet.CreateFuelRequest(cmd.Context(), fuelRequest)
		if err != nil {
			return fmt.Errorf("ошибка создания запроса топлива: %w", err)
		}
		return printCreated(cmd, "Запрос топлива", id)
	},
}

func init() {
	a := advanceAddCmd.Flags()
	a.Int64Var(&advanceAdd.DriverID, "driver", 0, "локальный id водителя")
	a.StringVar(&advanceAdd.Date, "date", "", "дата YYYY-MM-DD (по умолчанию сегодня)")
	a.Float64Var(&advanceAdd.Amount, "amount", 0, "сумма")
	a.StringVar(&advanceAdd.Note, "note", "", "комментарий")

	f := fuelAddCmd.Flags()
	f.Int64Var(&fuelAdd.DriverID, "driver", 0, "локальный id водителя")
	f.StringVar(&fuelAdd.Date, "date", "", "дата YYYY-MM-DD (по умолчанию сегодня)")
	f.Float64Var(&fuelAdd.Amount, "amount", 0, "сумма")
	f.Float64Var(&fuelAdd.Litres, "litres", 0, "литры")

	r := fuelRequestCmd.Flags()
	r.Int64Var(&fuelRequest.DriverID, "driver", 0, "локальный id водителя")
	r.StringVar(&fuelRequest.Date, "date", "", "дата YYYY-MM-DD (по умолчанию сегодня)")
	r.Float64Var(&fuelRequest.Amount, "amount", 0, "сумма")
	r.StringVar(&fuelRequest.Note, "note", "", "комментарий")

	for _, c := range []*cobra.Command{advanceAddCmd, fuelAddCmd, fuelRequestCmd} {
		_ = c.MarkFlagRequired("driver")
		_ = c.MarkFlagRequired("amount")
	}
}
