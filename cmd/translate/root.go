package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-translate-local/internal/adapterinfo"
	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/logging"
)

type app struct {
	loader config.Loader

	dataDir   string
	modelDir  string
	modelType string
	logLevel  string
	stub      bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(loader config.Loader) *cobra.Command {
	a := &app{loader: loader}

	root := &cobra.Command{
		Use:           "translate",
		Short:         "Offline text translation with CTranslate2 models",
		Version:       adapterinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.dataDir, "data-dir", "", "directory holding models/<type>/<src>-<tgt>")
	flags.StringVar(&a.modelDir, "model-dir", "", "use this model directory for every pair")
	flags.StringVar(&a.modelType, "model-type", "", "model type: lite or full")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.stub, "stub", false, "use the stub runtime instead of CTranslate2")

	root.AddCommand(
		a.newRunCmd(),
		a.newDetectCmd(),
		a.newVocabCmd(),
		a.newModelsCmd(),
	)
	return root
}

// configure loads adapter configuration and applies flags that were set.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("model-dir") {
		cfg.ModelDir = a.modelDir
	}
	if flags.Changed("model-type") {
		cfg.ModelType = a.modelType
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("stub") {
		cfg.UseStubEngine = a.stub
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel).With("component", "cli")
	return nil
}
