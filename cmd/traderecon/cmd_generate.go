package main

import (
	"fmt"

	"github.com/savegress/traderecon/internal/generator"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		internalPath string
		bankPath     string
		trades       int
		seed         int64
		zombies      int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a seeded synthetic ledger and bank statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := a.cfg.Generator
			if cmd.Flags().Changed("trades") {
				gc.Trades = trades
			}
			if cmd.Flags().Changed("seed") {
				gc.Seed = seed
			}
			if cmd.Flags().Changed("zombies") {
				gc.Zombies = zombies
			}
			if gc.Trades < 0 || gc.Zombies < 0 {
				return fmt.Errorf("trades and zombies must not be negative")
			}

			if !cmd.Flags().Changed("internal") {
				internalPath = a.cfg.Reconciliation.InternalPath
			}
			if !cmd.Flags().Changed("bank") {
				bankPath = a.cfg.Reconciliation.BankPath
			}

			ds, err := generator.NewGenerator(gc, a.logger).WriteFiles(internalPath, bankPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %d trades to %s\n", len(ds.Internal), internalPath)
			fmt.Fprintf(out, "wrote %d trades to %s\n", len(ds.Bank), bankPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&internalPath, "internal", "", "internal ledger output path")
	cmd.Flags().StringVar(&bankPath, "bank", "", "bank statement output path")
	cmd.Flags().IntVar(&trades, "trades", 0, "number of internal trades")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&zombies, "zombies", 0, "bank-only trades to append")

	return cmd
}
