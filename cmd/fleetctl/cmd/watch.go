package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/domain/record"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <collection>",
	Short: "Следить за коллекцией в реальном времени",
	Long: `Запускает синхронизацию в этом процессе и печатает снимок коллекции
при каждом изменении: локальном или пришедшем с других устройств.
Остановка: Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := record.Collection(args[0])
		snapshots, err := app.Watch(ctx, c)
		if err != nil {
			return fmt.Errorf("ошибка подписки на %s: %w", c, err)
		}
		if err := app.Start(ctx); err != nil {
			return err
		}
		defer app.Shutdown()

		p := clictx.Printer(cmd)
		for {
			select {
			case <-ctx.Done():
				return nil
			case recs, ok := <-snapshots:
				if !ok {
					return nil
				}
				if err := printSnapshot(p, c, recs); err != nil {
					return err
				}
			}
		}
	},
}

func printSnapshot(p *output.Printer, c record.Collection, recs []*record.Record) error {
	return p.Value(recs, func(w io.Writer) {
		pending := 0
		for _, rec := range recs {
			if rec.Pending() {
				pending++
			}
		}
		fmt.Fprintf(w, "%s %s: %d записей, неотправленных %d\n",
			color.CyanString(time.Now().Format("15:04:05")), c, len(recs), pending)
		for _, rec := range recs {
			status := ""
			if rec.Status != record.StatusNone {
				status = " " + output.Status(string(rec.Status))
			}
			fmt.Fprintf(w, "  #%d v%d%s %s\n", rec.LocalID, rec.Version, status, rec.Data)
		}
	})
}

