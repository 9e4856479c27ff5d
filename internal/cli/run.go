package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowshot-io/zipkit/pkg/archiver"
	"github.com/flowshot-io/zipkit/pkg/batch"
	"github.com/flowshot-io/zipkit/pkg/config"
	"github.com/flowshot-io/zipkit/pkg/remote"
)

// NewRunCmd executes a job manifest.
func NewRunCmd(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run MANIFEST",
		Short: "Run the archive jobs described in a YAML manifest",
		Long: `Run the archive jobs described in a YAML manifest.

Archive jobs (directory, files) run first, extract jobs second, each phase
with the manifest's concurrency. Relative paths resolve against the
manifest's directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.LoadManifest(args[0])
			if err != nil {
				return err
			}

			if dryRun {
				for _, j := range m.Jobs {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s -> %s\n", j.Kind, j.Name, j.Destination)
				}
				return nil
			}

			log := g.logger()

			opts := &batch.Options{
				Archiver: archiver.New(&archiver.Options{
					Logger:           log,
					Strict:           m.Strict || g.strict,
					CompressionLevel: pick(m.CompressionLevel, g.level),
				}),
				Logger:      log,
				Concurrency: m.Concurrency,
			}

			if m.Remote != "" {
				store, err := remote.Open(m.Remote)
				if err != nil {
					return err
				}

				client, err := remote.New(remote.Options{
					Store:      store,
					WorkingDir: m.RemoteDir,
					Logger:     log,
				})
				if err != nil {
					return err
				}
				opts.Remote = client
			}

			return batch.New(opts).Run(cmd.Context(), m.Jobs)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the manifest and print the jobs without running them")

	return cmd
}

func pick(manifest, flag int) int {
	if flag != 0 {
		return flag
	}
	return manifest
}
