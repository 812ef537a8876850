package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type productOpts struct {
	*rootOpts
	asJSON bool
}

func newProduct(parent *rootOpts) *productOpts {
	return &productOpts{rootOpts: parent}
}

func (opts *productOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "product URL",
		Short:   "Show the last scraped state of one product page.",
		Example: makeExample("silverctl product https://www.silver.com/1-oz-silver-eagle"),
		RunE:    opts.RunE,
	}
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the raw record as JSON")
	return cmd
}

func (opts *productOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return newUsageError("please supply exactly one product URL")
	}

	ctx := context.Background()
	info, err := opts.API.Product(ctx, args[0])
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	w := newTabwriter()
	fmt.Fprintf(w, "URL:\t%s\n", info.URL.String())
	fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	fmt.Fprintf(w, "Price:\t%s\n", info.Price)
	fmt.Fprintf(w, "Availability:\t%s\n", info.Availability)
	if info.SKU != "" {
		fmt.Fprintf(w, "SKU:\t%s\n", info.SKU)
	}
	if !info.LastScraped.IsZero() {
		fmt.Fprintf(w, "Scraped:\t%s\n", info.LastScraped.Format(time.RFC3339))
	}
	return w.Flush()
}
