// Package cli wires the zipkit command tree.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/flowshot-io/zipkit/pkg/archiver"
	"github.com/flowshot-io/zipkit/pkg/config"
	"github.com/flowshot-io/zipkit/pkg/logger"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configDir string
	logLevel  string
	pretty    bool
	strict    bool
	level     int
}

// applySettings fills every flag the user did not set from settings.yaml in
// the config directory. A missing file is only an error when --config-dir was
// given explicitly.
func (g *globals) applySettings(cmd *cobra.Command) error {
	flags := cmd.Flags()

	s, err := config.LoadSettings(g.configDir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !flags.Changed("config-dir") {
			return nil
		}
		return err
	}

	if s.LogLevel != "" && !flags.Changed("log-level") {
		g.logLevel = s.LogLevel
	}
	if !flags.Changed("pretty") {
		g.pretty = s.Pretty
	}
	if !flags.Changed("strict") {
		g.strict = s.Strict
	}
	if !flags.Changed("level") {
		g.level = s.CompressionLevel
	}

	for name, value := range map[string]string{
		"remote":     s.Remote,
		"remote-dir": s.RemoteDir,
	} {
		if value == "" || flags.Lookup(name) == nil || flags.Changed(name) {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}

	return nil
}

func (g *globals) logger() logger.Logger {
	return logger.New(&logger.Options{
		Pretty: g.pretty,
		Level:  g.logLevel,
	})
}

func (g *globals) archiver(log logger.Logger) *archiver.Archiver {
	return archiver.New(&archiver.Options{
		Logger:           log,
		Strict:           g.strict,
		CompressionLevel: g.level,
	})
}

// NewRootCmd creates and returns the root cobra command for the zipkit CLI.
func NewRootCmd(version string) *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "zipkit",
		Short: "zipkit - build, extract and publish zip archives",
		Long: `zipkit builds zip archives from directory trees or file lists and
extracts them again.

Use subcommands to perform different operations:
  - archive-dir: Archive a directory tree, optionally excluding folders
  - archive-files: Archive a list of files under their base names
  - extract: Unpack an archive into a directory
  - list: Show the entries of an archive
  - run: Execute a YAML job manifest
  - push / pull: Move archives to and from remote storage`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.applySettings(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configDir, "config-dir", "config", "Directory holding settings.yaml with defaults for these flags")
	flags.StringVar(&g.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.BoolVar(&g.pretty, "pretty", false, "Human readable log output")
	flags.BoolVar(&g.strict, "strict", false, "Fail when a source file disappears instead of skipping it")
	flags.IntVar(&g.level, "level", 0, "Deflate compression level (1-9, 0 for default)")

	groupArchive := "archive"
	groupRemote := "remote"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupArchive,
		Title: "Archive Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupRemote,
		Title: "Remote Storage",
	})

	for _, cmd := range []*cobra.Command{
		NewCheckCmd(g),
		NewArchiveDirCmd(g),
		NewArchiveFilesCmd(g),
		NewExtractCmd(g),
		NewListCmd(g),
		NewRunCmd(g),
	} {
		cmd.GroupID = groupArchive
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewPushCmd(g),
		NewPullCmd(g),
	} {
		cmd.GroupID = groupRemote
		rootCmd.AddCommand(cmd)
	}

	return rootCmd
}
