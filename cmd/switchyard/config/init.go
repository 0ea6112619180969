package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchyard/pkg/cliui"
	"github.com/papercomputeco/switchyard/pkg/config"
)

const initLongDesc string = `Write a fresh config.toml.

Creates config.toml in the .switchyard/ directory from a named preset:
  offline   hashing embeddings, no external services (default)
  ollama    Ollama embeddings with nomic-embed-text
  openai    OpenAI embeddings with text-embedding-3-small

An existing config.toml is left untouched unless --force is given.

Examples:
  switchyard config init
  switchyard config init --preset ollama
  switchyard config init --preset openai --force`

const initShortDesc string = "Write a fresh config.toml from a preset"

func newInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(cmd.OutOrStdout(), preset, force, configDir)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "offline", "Preset name (offline, ollama, openai)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(w io.Writer, preset string, force bool, configDir string) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if !force && target != "" {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", target)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(preset),
		cliui.DimStyle.Render(target),
	)
	return nil
}
