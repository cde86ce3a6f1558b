package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"site-ingest/pkg/chatcontext"
)

func NewContextCommand(opts *rootOptions) *cobra.Command {
	var items int

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the recent-content block handed to the chat assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if items <= 0 && a.cfg.Server != nil {
				items = a.cfg.Server.ContextItems
			}
			block, err := chatcontext.NewBuilder(a.store, items).Build(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), block)
			return err
		},
	}

	cmd.Flags().IntVarP(&items, "items", "n", 0, "number of recent records, defaults to server.context_items")
	return cmd
}
