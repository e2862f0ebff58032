package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bommel/internal/core"
)

func newTxCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Book transactions against Bommels",
	}

	cmd.AddCommand(newTxAddCmd(app))

	return cmd
}

func newTxAddCmd(app *App) *cobra.Command {
	var draft bool
	var description string

	cmd := &cobra.Command{
		Use:   "add ID AMOUNT",
		Short: "Book an amount in euros; negative amounts are expenses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return &core.ValidationError{Field: "amount", Err: err}
			}

			ctx := cmd.Context()
			coord, err := app.Coordinator(ctx)
			if err != nil {
				return err
			}
			if _, ok := coord.Store().Get(id); !ok {
				return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
			}
			res, err := app.Backend(ctx)
			if err != nil {
				return err
			}
			tx, err := res.Backend.RecordTransaction(ctx, core.Transaction{
				BommelID:    id,
				Amount:      amount,
				Draft:       draft,
				Description: description,
			})
			if err != nil {
				return err
			}
			if err := coord.Reload(ctx); err != nil {
				return err
			}

			kind := "booked"
			if tx.Draft {
				kind = "draft"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s transaction #%d of %s on #%d\n", kind, tx.ID, tx.Amount, id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&draft, "draft", false, "Record as an unconfirmed draft")
	cmd.Flags().StringVar(&description, "description", "", "Free text description")

	return cmd
}
