package sync

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/spf13/cobra"
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Синхронизация локальных записей с удаленным хранилищем.

Фоновую синхронизацию выполняет fleetd; эти команды позволяют отправить
записи вручную, повторить неудачную отправку и посмотреть состояние.`,
}

var PendingCmd = &cobra.Command{
	Use:   "pending [collection...]",
	Short: "Отправить неотправленные записи",
	Long:  "Без аргументов отправляет все коллекции, родительские раньше дочерних.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		collections := record.Collections()
		if len(args) > 0 {
			collections = collections[:0:0]
			for _, a := range args {
				collections = append(collections, record.Collection(a))
			}
		}

		var summaries []docsync.PushSummary
		for _, c := range collections {
			s, err := app.Sync.SyncPending(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("ошибка синхронизации %s: %w", c, err)
			}
			summaries = append(summaries, s)
		}
		return clictx.Printer(cmd).Value(summaries, func(out io.Writer) {
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLLECTION\tSELECTED\tPUSHED\tFAILED")
			for _, s := range summaries {
				if s.Selected == 0 {
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Collection, s.Selected, s.Pushed, s.Failed)
			}
			_ = w.Flush()
		})
	},
}

var RetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Повторить отправку записи",
	Long:  "Сбрасывает счетчик неудачных попыток записи и отправляет ее заново.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("неверный id записи %q", args[0])
		}
		if err := app.Sync.RetrySync(cmd.Context(), id); err != nil {
			return fmt.Errorf("ошибка отправки записи %d: %w", id, err)
		}
		clictx.Printer(cmd).Success("Запись %d отправлена", id)
		return nil
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние синхронизации",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		st, err := app.Sync.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения состояния: %w", err)
		}
		remote := "offline"
		if st.Online {
			remote = "online"
			if err := app.Sync.HealthCheck(cmd.Context()); err != nil {
				remote = "unreachable"
			}
		}
		return clictx.Printer(cmd).Value(st, func(out io.Writer) {
			fmt.Fprintf(out, "Арендатор: %s\nУдаленное хранилище: %s\n\n", st.TenantID, output.Status(remote))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLLECTION\tTOTAL\tUNSYNCED\tDIRTY\tFAILING")
			for _, c := range st.Collections {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", c.Collection, c.Total, c.Unsynced, c.Dirty, c.Failing)
			}
			_ = w.Flush()
		})
	},
}

func init() {
	SyncCmd.AddCommand(PendingCmd, RetryCmd, StatusCmd)
}
