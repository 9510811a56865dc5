package records

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/domain/record"

	"github.com/spf13/cobra"
)

var pendingOnly bool

var RecordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Просмотр локальных записей",
}

var ListCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "Список записей коллекции",
	Long: `Выводит записи коллекции текущего арендатора из локального хранилища.

Коллекции: ` + collectionNames(),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		list, err := app.Records.List(cmd.Context(), record.Collection(args[0]))
		if err != nil {
			return fmt.Errorf("ошибка получения списка записей: %w", err)
		}
		recs := list.Records
		if pendingOnly {
			recs = recs[:0:0]
			for _, rec := range list.Records {
				if rec.Pending() {
					recs = append(recs, rec)
				}
			}
		}
		return clictx.Printer(cmd).Value(recs, func(w io.Writer) {
			printTable(w, recs)
		})
	},
}

func printTable(out io.Writer, recs []*record.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "Записи не найдены")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREMOTE\tSTATUS\tVER\tSYNC\tDATA")
	for _, rec := range recs {
		remote := rec.RemoteID
		if len(remote) > 8 {
			remote = remote[:8]
		}
		if remote == "" {
			remote = "-"
		}
		status := string(rec.Status)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			rec.LocalID, remote, output.Status(status), rec.Version, syncState(rec), truncate(string(rec.Data), 60))
	}
	_ = w.Flush()
}

func syncState(rec *record.Record) string {
	switch {
	case rec.SyncAttempts > 0 && rec.Pending():
		return output.Status("failing") + fmt.Sprintf(" (%d)", rec.SyncAttempts)
	case !rec.Synced():
		return output.Status("pending")
	case rec.Dirty:
		return output.Status("dirty")
	}
	return output.Status("synced")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func collectionNames() string {
	var names []string
	for _, c := range record.Collections() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func init() {
	ListCmd.Flags().BoolVar(&pendingOnly, "pending", false, "только неотправленные записи")
	RecordsCmd.AddCommand(ListCmd)
}
