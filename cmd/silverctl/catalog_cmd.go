package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcamper/silver-scraper/pkg/product"
)

type catalogOpts struct {
	*rootOpts
	target   string
	urlsOnly bool
}

func newCatalog(parent *rootOpts) *catalogOpts {
	return &catalogOpts{rootOpts: parent}
}

func (opts *catalogOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		Short:   "Show the scraped products of one catalog target.",
		Example: makeExample("silverctl catalog -t silver-coins"),
		RunE:    opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "name of the catalog target")
	cmd.Flags().BoolVar(&opts.urlsOnly, "urls", false, "print product URLs only")
	return cmd
}

func (opts *catalogOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}
	if opts.target == "" {
		return newUsageError("please supply a target name with --target")
	}

	ctx := context.Background()
	catalog, err := opts.API.Catalog(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.urlsOnly {
		for _, u := range catalog.URLs {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	}

	products := make([]product.Info, 0, len(catalog.Products))
	for _, p := range catalog.Products {
		products = append(products, p)
	}
	product.Sort(products, product.CheaperByPrice)

	w := newTabwriter()
	fmt.Fprintln(w, "PRODUCT\tPRICE\tAVAILABILITY\tURL")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Price, p.Availability, p.URL.String())
	}
	return w.Flush()
}
