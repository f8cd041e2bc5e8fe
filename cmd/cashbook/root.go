package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cashbook/backend/internal/config"
)

func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "cashbook",
		Short: "Cash book device: daily ledger kept in step with a shared book store",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init()
		},
	}

	root.PersistentFlags().String("book", "", "Book ID to open (defaults to the last active book)")
	root.PersistentFlags().String("role", "", "Device role, ADMIN or VIEWER")
	root.PersistentFlags().String("remote", "", "Book store base URL")
	viper.BindPFlag("book.id", root.PersistentFlags().Lookup("book"))
	viper.BindPFlag("device.role", root.PersistentFlags().Lookup("role"))
	viper.BindPFlag("sync.remote_url", root.PersistentFlags().Lookup("remote"))

	root.AddCommand(serveCmd(), newBookCmd())
	return root.ExecuteContext(ctx)
}
