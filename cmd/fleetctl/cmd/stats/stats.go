package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/internal/domain/stats"

	"github.com/spf13/cobra"
)

var (
	driverID   int64
	month      string
	from, to   string
	fromRemote bool
	publish    bool
)

var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Сводка по одобренным рейсам",
	Long: `Считает заработок, выручку, расходы, прибыль и сумму к выплате
по одобренным рейсам, заправкам и авансам. Цифры всегда пересчитываются
из исходных записей.

С --publish месячная сводка водителя сохраняется в коллекцию stats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		agg, err := app.Stats(fromRemote)
		if err != nil {
			return err
		}

		if publish {
			if driverID == 0 || month == "" {
				return fmt.Errorf("для --publish нужны --driver и --month")
			}
			id, err := agg.Publish(cmd.Context(), driverID, month)
			if err != nil {
				return fmt.Errorf("ошибка сохранения сводки: %w", err)
			}
			clictx.Printer(cmd).Success("Сводка сохранена, локальный id %d", id)
			return nil
		}

		filter := stats.Filter{DriverID: driverID, From: from, To: to}
		if month != "" {
			if from != "" || to != "" {
				return fmt.Errorf("--month нельзя сочетать с --from/--to")
			}
			if filter, err = stats.MonthFilter(driverID, month); err != nil {
				return err
			}
		}
		sum, err := agg.Compute(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("ошибка расчета сводки: %w", err)
		}
		return clictx.Printer(cmd).Value(sum, func(out io.Writer) {
			printSummary(out, sum)
		})
	},
}

func printSummary(out io.Writer, s stats.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Рейсов:\t%d\t\n", s.Trips)
	fmt.Fprintf(w, "Мешков:\t%.0f\t\n", s.Bags)
	fmt.Fprintf(w, "Заработок:\t%.2f\t\n", s.Earnings)
	fmt.Fprintf(w, "Выручка:\t%.2f\t\n", s.Revenue)
	fmt.Fprintf(w, "Топливо:\t%.2f\t\n", s.Fuel)
	fmt.Fprintf(w, "Платные дороги:\t%.2f\t\n", s.Tolls)
	fmt.Fprintf(w, "Расходы:\t%.2f\t\n", s.Cost)
	fmt.Fprintf(w, "Прибыль:\t%.2f\t\n", s.Profit)
	fmt.Fprintf(w, "Авансы:\t%.2f\t\n", s.Advances)
	fmt.Fprintf(w, "К выплате:\t%.2f\t\n", s.Payable)
	_ = w.Flush()
	if s.Excluded > 0 {
		fmt.Fprintf(out, "\nНе учтено неодобренных рейсов: %d\n", s.Excluded)
	}
}

func init() {
	f := StatsCmd.Flags()
	f.Int64Var(&driverID, "driver", 0, "локальный id водителя (по умолчанию все)")
	f.StringVar(&month, "month", "", "месяц YYYY-MM")
	f.StringVar(&from, "from", "", "начало периода YYYY-MM-DD")
	f.StringVar(&to, "to", "", "конец периода YYYY-MM-DD")
	f.BoolVar(&fromRemote, "remote", false, "считать по удаленному хранилищу")
	f.BoolVar(&publish, "publish", false, "сохранить месячную сводку водителя")
	_ = StatsCmd.RegisterFlagCompletionFunc("month", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		now := time.Now()
		return []string{now.Format("2006-01"), now.AddDate(0, -1, 0).Format("2006-01")}, cobra.ShellCompDirectiveNoFileComp
	})
}
