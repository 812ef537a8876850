package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type targetListOpts struct {
	*rootOpts
}

func newTargetList(parent *rootOpts) *targetListOpts {
	return &targetListOpts{rootOpts: parent}
}

func (opts *targetListOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:     "list-targets",
		Short:   "List the catalog targets the daemon keeps warm.",
		Example: makeExample("silverctl list-targets"),
		RunE:    opts.RunE,
	}
}

func (opts *targetListOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}

	ctx := context.Background()
	targets, err := opts.API.ListTargets(ctx)
	if err != nil {
		return err
	}

	w := newTabwriter()
	fmt.Fprintln(w, "TARGET\tSOURCE\tPRODUCTS")
	for _, t := range targets {
		source := t.Target.URL
		if source == "" {
			source = fmt.Sprintf("search: %q", t.Target.Query)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", t.Target.Name, source, t.ProductCount)
	}
	return w.Flush()
}
