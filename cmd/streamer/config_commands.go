package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"streamer/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the streamer configuration",
	}
	cmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("config file already exists at %s (pass --overwrite to replace it)", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next: set paths.media_dir, run `streamer check`, then `streamer serve`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: user config dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget resolves the destination for `config init`.
func initTarget(flagValue string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		path, err := config.ExpandPath(v)
		if err != nil {
			return "", fmt.Errorf("resolve --path: %w", err)
		}
		return path, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("locate default config: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := resolved
			if !exists {
				source += " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintf(out, "Store: %s\n", cfg.Store.Driver)
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, effectiveSettings(cfg), nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// effectiveSettings lists the values operators most often need to confirm.
// Store DSNs are omitted since they may carry credentials.
func effectiveSettings(cfg *config.Config) [][]string {
	maxUpload := "unlimited"
	if cfg.Upload.MaxBytes > 0 {
		maxUpload = humanize.IBytes(uint64(cfg.Upload.MaxBytes))
	}
	notify := "disabled"
	if cfg.Notifications.NtfyTopic != "" {
		notify = cfg.Notifications.NtfyTopic
	}
	return [][]string{
		{"media dir", cfg.Paths.MediaDir},
		{"originals", cfg.Paths.OriginalDir},
		{"hls output", cfg.Paths.HLSDir},
		{"bind", cfg.Server.Bind},
		{"ffmpeg", cfg.FFmpegBinary()},
		{"workers", strconv.Itoa(cfg.Transcode.Workers)},
		{"max upload", maxUpload},
		{"extensions", strings.Join(cfg.Upload.AllowedExtensions, " ")},
		{"ntfy", notify},
	}
}
