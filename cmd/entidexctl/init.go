package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the listing and search indexes of every configured kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, logger, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer client.Close()

			sts, err := client.Init(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sts {
				_, _ = fmt.Fprintf(out, "%s: listing %s, search %s\n",
					s.Kind, created(s.ListingCreated), created(s.SearchCreated))
			}
			return nil
		},
	}
}

func created(b bool) string {
	if b {
		return "created"
	}
	return "exists"
}
