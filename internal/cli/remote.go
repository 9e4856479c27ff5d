package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowshot-io/zipkit/pkg/remote"
)

type remoteFlags struct {
	conn string
	dir  string
}

func (f *remoteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.conn, "remote", "r", "", "Remote connection string, e.g. s3://bucket?credential=hmac:KEY:SECRET (required)")
	cmd.Flags().StringVar(&f.dir, "remote-dir", "", "Folder inside the remote (default \"archives\")")
	cmd.MarkFlagRequired("remote")
}

func (f *remoteFlags) client(g *globals) (*remote.Client, error) {
	store, err := remote.Open(f.conn)
	if err != nil {
		return nil, err
	}

	return remote.New(remote.Options{
		Store:      store,
		WorkingDir: f.dir,
		Logger:     g.logger(),
	})
}

// NewPushCmd uploads a local archive.
func NewPushCmd(g *globals) *cobra.Command {
	var rf remoteFlags

	cmd := &cobra.Command{
		Use:   "push LOCAL [NAME]",
		Short: "Upload a local archive to remote storage",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rf.client(g)
			if err != nil {
				return err
			}

			name := filepath.Base(args[0])
			if len(args) == 2 {
				name = args[1]
			}

			return client.Push(cmd.Context(), args[0], name)
		},
	}

	rf.bind(cmd)

	return cmd
}

// NewPullCmd downloads a remote archive.
func NewPullCmd(g *globals) *cobra.Command {
	var rf remoteFlags

	cmd := &cobra.Command{
		Use:   "pull NAME LOCAL",
		Short: "Download an archive from remote storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rf.client(g)
			if err != nil {
				return err
			}

			return client.Pull(cmd.Context(), args[0], args[1])
		},
	}

	rf.bind(cmd)

	return cmd
}
