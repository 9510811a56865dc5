// Package fleet содержит команды создания сущностей автопарка.
package fleet

import (
	"fmt"
	"io"
	"time"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"

	"github.com/spf13/cobra"
)

var (
	DriverCmd = &cobra.Command{
		Use:   "driver",
		Short: "Водители",
	}
	TripCmd = &cobra.Command{
		Use:   "trip",
		Short: "Рейсы и их одобрение",
	}
	AdvanceCmd = &cobra.Command{
		Use:   "advance",
		Short: "Авансы водителям",
	}
	FuelCmd = &cobra.Command{
		Use:   "fuel",
		Short: "Заправки и запросы топлива",
	}
)

func today() string {
	return time.Now().Format("2006-01-02")
}

// printCreated печатает id новой записи; при отсутствии сети напоминает, что запись в очереди.
func printCreated(cmd *cobra.Command, what string, id int64) error {
	app, err := clictx.App(cmd)
	if err != nil {
		return err
	}
	p := clictx.Printer(cmd)
	if err := p.Value(map[string]int64{"id": id}, func(w io.Writer) {
		fmt.Fprintf(w, "%s создан(а), локальный id %d\n", what, id)
	}); err != nil {
		return err
	}
	if !app.Online() {
		p.Warn("Удаленное хранилище не настроено: запись будет отправлена при следующей синхронизации")
	}
	return nil
}

func init() {
	DriverCmd.AddCommand(driverAddCmd)
	TripCmd.AddCommand(tripAddCmd, tripApproveCmd, tripRejectCmd)
	AdvanceCmd.AddCommand(advanceAddCmd)
	FuelCmd.AddCommand(fuelAddCmd, fuelRequestCmd)
}
