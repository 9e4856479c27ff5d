package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewCheckCmd reports whether zip support is available.
func NewCheckCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that zip archives can be written and read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := g.archiver(g.logger()).CheckSupport()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "zip support available: %t\n", ok)
			return nil
		},
	}
}

// NewArchiveDirCmd archives a directory tree.
func NewArchiveDirCmd(g *globals) *cobra.Command {
	var exclude []string

	cmd := &cobra.Command{
		Use:   "archive-dir ROOT DEST",
		Short: "Archive every file under ROOT into DEST",
		Long: `Archive every file under ROOT into the zip archive DEST, naming each
entry by its path relative to ROOT.

--exclude takes relative folder paths; only files directly inside a listed
folder are left out. Files that vanish while the archive is being written
are skipped unless --strict is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.archiver(g.logger()).ArchiveDirectory(args[0], args[1], exclude...)
		},
	}

	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "Relative folder to leave out (repeatable)")

	return cmd
}

// NewArchiveFilesCmd archives an explicit list of files.
func NewArchiveFilesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "archive-files DEST FILE...",
		Short: "Archive the listed files into DEST under their base names",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.archiver(g.logger()).ArchiveFiles(args[1:], args[0])
		},
	}
}

// NewExtractCmd unpacks an archive.
func NewExtractCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "extract SRC DEST",
		Short: "Extract every entry of SRC into DEST, overwriting existing files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.archiver(g.logger()).Extract(args[0], args[1])
		},
	}
}

// NewListCmd prints the entries of an archive.
func NewListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list SRC",
		Short: "List the entries of SRC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := g.archiver(g.logger()).List(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SIZE\tMODIFIED\tNAME")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.Size, e.Modified.Format("2006-01-02 15:04"), e.Name)
			}
			return w.Flush()
		},
	}
}
