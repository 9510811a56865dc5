// Package clictx передает собранное приложение и принтер в подкоманды через context команды.
package clictx

import (
	"context"
	"errors"

	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/app/agent"

	"github.com/spf13/cobra"
)

type (
	appKey     struct{}
	printerKey struct{}
)

var ErrNoApp = errors.New("приложение не инициализировано")

func With(ctx context.Context, app *agent.App, p *output.Printer) context.Context {
	ctx = context.WithValue(ctx, appKey{}, app)
	return context.WithValue(ctx, printerKey{}, p)
}

func App(cmd *cobra.Command) (*agent.App, error) {
	app, ok := cmd.Context().Value(appKey{}).(*agent.App)
	if !ok || app == nil {
		return nil, ErrNoApp
	}
	return app, nil
}

// Printer возвращает принтер команды; без настроенного - текстовый в stdout.
func Printer(cmd *cobra.Command) *output.Printer {
	if p, ok := cmd.Context().Value(printerKey{}).(*output.Printer); ok {
		return p
	}
	return output.NewWriter(cmd.OutOrStdout(), output.FormatText)
}
