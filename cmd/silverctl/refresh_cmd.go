package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type refreshOpts struct {
	*rootOpts
	target string
}

func newRefresh(parent *rootOpts) *refreshOpts {
	return &refreshOpts{rootOpts: parent}
}

func (opts *refreshOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "refresh",
		Short:   "Ask the daemon to re-scrape a catalog target ahead of schedule.",
		Example: makeExample("silverctl refresh -t silver-coins"),
		RunE:    opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "name of the catalog target")
	return cmd
}

func (opts *refreshOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}
	if opts.target == "" {
		return newUsageError("please supply a target name with --target")
	}

	ctx := context.Background()
	if err := opts.API.Refresh(ctx, opts.target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued refresh of %s\n", opts.target)
	return nil
}
