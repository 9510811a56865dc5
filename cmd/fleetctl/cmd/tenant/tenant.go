package tenant

import (
	"fmt"
	"io"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"

	"github.com/spf13/cobra"
)

var TenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Арендатор, от имени которого работает устройство",
}

var UseCmd = &cobra.Command{
	Use:   "use <tenant-id>",
	Short: "Переключиться на другого арендатора",
	Long: `Сохраняет арендатора в файл конфигурации. Работающий fleetd заметит
изменение файла и переключит синхронизацию: слушатели и фоновые отправки
старого арендатора останавливаются.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		if err := app.UseTenant(args[0]); err != nil {
			return fmt.Errorf("ошибка переключения арендатора: %w", err)
		}
		clictx.Printer(cmd).Success("Текущий арендатор: %s", args[0])
		return nil
	},
}

var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Показать текущего арендатора и участника",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := clictx.App(cmd)
		if err != nil {
			return err
		}
		actor := app.Actor()
		view := map[string]string{
			"tenant_id": app.TenantID(),
			"member_id": actor.MemberID,
			"role":      string(actor.Role),
		}
		return clictx.Printer(cmd).Value(view, func(w io.Writer) {
			tenantID := app.TenantID()
			if tenantID == "" {
				tenantID = "(не задан)"
			}
			fmt.Fprintf(w, "Арендатор: %s\nУчастник:  %s (%s)\n", tenantID, actor.MemberID, actor.Role)
		})
	},
}

func init() {
	TenantCmd.AddCommand(UseCmd, ShowCmd)
}
