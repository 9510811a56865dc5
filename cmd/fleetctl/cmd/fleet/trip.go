package fleet

import (
	"fmt"
	"io"
	"strconv"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"

	"github.com/spf13/cobra"
)

var (
	tripAdd       fleet.Trip
	decideVersion int
	rejectReason  string
)

var tripAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Добавить рейс",
	Long: `Добавляет рейс в статусе PENDING. Если ставка не указана, она берется
из тарифной сетки компании по расстоянию (--company и --km).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		if tripAdd.Date == "" {
			tripAdd.Date = today()
		}
		id, err := app.Fleet.CreateTrip(cmd.Context(), tripAdd)
		if err != nil {
			return fmt.Errorf("ошибка создания рейса: %w", err)
		}
		return printCreated(cmd, "Рейс", id)
	},
}

var tripApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Одобрить рейс (только владелец)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], record.StatusApproved, "")
	},
}

var tripRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Отклонить рейс (только владелец)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], record.StatusRejected, rejectReason)
	},
}

func decide(cmd *cobra.Command, arg string, to record.Status, reason string) error {
	app, err := clictx.App(cmd)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("неверный id рейса %q", arg)
	}

	var rec *record.Record
	switch {
	case decideVersion > 0:
		rec, err = app.Approval.Transition(cmd.Context(), id, decideVersion, to, reason)
	case to == record.StatusApproved:
		rec, err = app.Approval.ApproveTrip(cmd.Context(), id)
	default:
		rec, err = app.Approval.RejectTrip(cmd.Context(), id, reason)
	}
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса рейса: %w", err)
	}

	return clictx.Printer(cmd).Value(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Рейс %d: %s (версия %d)\n", rec.LocalID, output.Status(string(rec.Status)), rec.Version)
		if rec.Reason != "" {
			fmt.Fprintf(w, "Причина: %s\n", rec.Reason)
		}
	})
}

func init() {
	f := tripAddCmd.Flags()
	f.Int64Var(&tripAdd.DriverID, "driver", 0, "локальный id водителя")
	f.Int64Var(&tripAdd.CompanyID, "company", 0, "локальный id компании")
	f.Int64Var(&tripAdd.PickupID, "pickup", 0, "локальный id точки погрузки")
	f.Int64Var(&tripAdd.ClientID, "client", 0, "локальный id клиента")
	f.StringVar(&tripAdd.Date, "date", "", "дата рейса YYYY-MM-DD (по умолчанию сегодня)")
	f.Float64Var(&tripAdd.Bags, "bags", 0, "количество мешков")
	f.Float64Var(&tripAdd.Rate, "rate", 0, "ставка водителя за мешок")
	f.Float64Var(&tripAdd.BillRate, "bill-rate", 0, "ставка для клиента за мешок")
	f.Float64Var(&tripAdd.Tolls, "tolls", 0, "платные дороги")
	f.Float64Var(&tripAdd.Km, "km", 0, "расстояние, км")
	_ = tripAddCmd.MarkFlagRequired("driver")
	_ = tripAddCmd.MarkFlagRequired("bags")

	for _, c := range []*cobra.Command{tripApproveCmd, tripRejectCmd} {
		c.Flags().IntVar(&decideVersion, "version", 0, "версия рейса, которую вы видели; при расхождении команда откажет")
	}
	tripRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "причина отказа")
	_ = tripRejectCmd.MarkFlagRequired("reason")
}
