package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every entity of a kind as JSON Lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			client, kind, logger, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer client.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(filepath.Clean(output))
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("close output: %w", cerr)
					}
				}()
				w = f
			}

			bw := bufio.NewWriter(w)
			n, err := client.Entities(kind).Export(cmd.Context(), func(raw json.RawMessage) error {
				if _, err := bw.Write(raw); err != nil {
					return err
				}
				return bw.WriteByte('\n')
			})
			if ferr := bw.Flush(); ferr != nil && err == nil {
				err = fmt.Errorf("write output: %w", ferr)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d exported\n", kind, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
