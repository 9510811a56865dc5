package cmd

import (
	"fmt"
	"os"

	"fleetcontrol/cmd/fleetctl/cmd/clictx"
	"fleetcontrol/cmd/fleetctl/cmd/output"
	"fleetcontrol/internal/app/agent"
	"fleetcontrol/internal/config"
	"fleetcontrol/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

// skipApp помечает команды, которым не нужно собранное приложение
const skipApp = "skip-app"

var (
	cfgFile      string
	cfg          *config.Config
	log          *slog.Logger
	app          *agent.App
	debug        bool
	outputFormat string
	tenantFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "FleetControl - учет рейсов, авансов и топлива автопарка",
	Long: `FleetControl хранит данные автопарка локально и синхронизирует их
с общим удаленным хранилищем, когда оно доступно.

Каждое устройство работает от имени участника арендатора (владелец или водитель).
Записи, созданные без сети, отправляются при следующей синхронизации.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: closeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if tenantFlag != "" {
		cfg.Device.TenantID = tenantFlag
	}

	env := cfg.Env
	if debug {
		env = config.EnvDev
	}
	log = logger.NewWithFile(env, cfg.Logger.LogFile)
	if !debug && cfg.Logger.LogFile == "" {
		// логи агента не смешиваем с выводом команд
		log = logger.Discard()
	}

	printer, err := output.New(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}

	if cmd.Annotations[skipApp] == "true" {
		cmd.SetContext(clictx.With(cmd.Context(), nil, printer))
		return nil
	}

	app, err = agent.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}
	cmd.SetContext(clictx.With(app.WithActor(cmd.Context()), app, printer))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (по умолчанию ~/.fleetcontrol/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", output.FormatText, "формат вывода: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "арендатор только для этой команды")
}
