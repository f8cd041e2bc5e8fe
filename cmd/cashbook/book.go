package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cashbook/backend/internal/services"
)

func newBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-book",
		Short: "Print a fresh Book ID",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), services.GenerateBookID())
		},
	}
}
