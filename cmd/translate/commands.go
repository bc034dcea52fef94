package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
	"github.com/nupi-ai/plugin-translate-local/internal/languages"
	"github.com/nupi-ai/plugin-translate-local/internal/models"
	"github.com/nupi-ai/plugin-translate-local/internal/service"
	"github.com/nupi-ai/plugin-translate-local/internal/vocab"
)

const quitCommand = ":quit"

func (a *app) newRunCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "run [text...]",
		Short: "Translate text, or read lines from stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				from = a.cfg.SourceLanguage
			}
			if from == "client" {
				from = languages.Auto
			}
			if to == "" {
				to = a.cfg.TargetLanguage
			}

			manager, err := service.FromConfig(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			if len(args) > 0 {
				return a.translateLine(cmd, manager, strings.Join(args, " "), from, to)
			}
			return a.repl(cmd, manager, from, to)
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "source language code or auto")
	cmd.Flags().StringVarP(&to, "to", "t", "", "target language code")
	return cmd
}

func (a *app) translateLine(cmd *cobra.Command, m *service.Manager, text, from, to string) error {
	resp, err := m.Translate(cmd.Context(), service.Request{Text: text, Source: from, Target: to})
	if err != nil {
		return err
	}
	if resp.Detected != nil {
		a.logger.Info("source language detected",
			"language", resp.Detected.LanguageCode,
			"confidence", resp.Detected.ConfidencePercent,
			"reliable", resp.Detected.IsReliable,
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
	return nil
}

// repl translates stdin line by line. Failed lines are reported and skipped.
func (a *app) repl(cmd *cobra.Command, m *service.Manager, from, to string) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == quitCommand {
			return nil
		}
		if err := a.translateLine(cmd, m, line, from, to); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		}
	}
	return scanner.Err()
}

func (a *app) newDetectCmd() *cobra.Command {
	var hint string
	cmd := &cobra.Command{
		Use:   "detect <text...>",
		Short: "Detect the language of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scorer := langdetect.NewScorer(langdetect.NewLinguaClassifier(nil))
			res := scorer.Detect(strings.Join(args, " "), hint)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\treliable=%t\tconfidence=%d%%\n",
				res.LanguageCode, languages.Name(res.LanguageCode), res.IsReliable, res.ConfidencePercent)
			return nil
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "expected language code or name")
	return cmd
}

func (a *app) newVocabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab <model-dir>",
		Short: "Show which SentencePiece files a model directory would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vocab.Resolve(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source: %s\n", v.SourcePath)
			fmt.Fprintf(out, "target: %s\n", v.TargetPath)
			fmt.Fprintf(out, "shared: %t\n", v.Shared)
			return nil
		},
	}
}

func (a *app) newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the local model library",
	}
	cmd.AddCommand(a.newModelsListCmd(), a.newModelsVerifyCmd())
	return cmd
}

func (a *app) newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed language pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			library, err := models.NewManager(a.cfg.DataDir, a.logger)
			if err != nil {
				return err
			}
			installed, err := library.Installed()
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no models installed in %s\n", library.ModelsDir())
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tPAIR\tDIRECTION\tDIR")
			for _, m := range installed {
				direction := languages.Name(m.Pair.Source) + " → " + languages.Name(m.Pair.Target)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Type, m.Pair, direction, m.Dir)
			}
			return tw.Flush()
		},
	}
}

var errVerifyFailed = errors.New("one or more models failed verification")

func (a *app) newModelsVerifyCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check installed models against the manifest checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			library, err := models.NewManager(a.cfg.DataDir, a.logger)
			if err != nil {
				return err
			}
			installed, err := library.Installed()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, m := range installed {
				key := models.Key(m.Pair, m.Type)
				entry, err := manifest.Lookup(m.Pair, m.Type)
				if errors.Is(err, models.ErrUnknownPair) {
					fmt.Fprintf(out, "%s: not in manifest\n", key)
					continue
				}
				if err := models.Verify(m.Dir, entry); err != nil {
					failed = true
					fmt.Fprintf(out, "%s: FAILED: %v\n", key, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok (%d files)\n", key, len(entry.Files))
			}
			if failed {
				return errVerifyFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest YAML (defaults to the embedded catalog)")
	return cmd
}

func loadManifest(path string) (models.Manifest, error) {
	if path == "" {
		return models.DefaultManifest()
	}
	f, err := os.Open(path)
	if err != nil {
		return models.Manifest{}, err
	}
	defer f.Close()
	return models.LoadManifest(f)
}
