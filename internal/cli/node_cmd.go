package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bommel/internal/core"
)

func newTargetsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "targets ID",
		Short: "List the legal and invalid drop targets of a Bommel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}

			store := coord.Store()
			if _, ok := store.Get(id); !ok {
				return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "movable: %t\n", store.Movable(id))
			fmt.Fprintf(out, "legal:   %v\n", store.LegalTargets(id).Sorted())
			fmt.Fprintf(out, "invalid: %v\n", store.InvalidTargets(id).Sorted())
			return nil
		},
	}
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats ID",
		Short: "Show the figures of one Bommel in the current mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}

			b, ok := coord.Tree().Find(id)
			if !ok {
				return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
			}
			count, err := coord.TransactionCount(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", b.Node.Emoji, b.Node.Label)
			fmt.Fprintf(out, "figures:      %s\n", formatFigures(b.Display))
			fmt.Fprintf(out, "children:     %d\n", b.SubBommelsCount)
			fmt.Fprintf(out, "transactions: %d\n", count)
			return nil
		},
	}
}

func newCreateCmd(app *App) *cobra.Command {
	var parent int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a child Bommel with the default label",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}
			n, err := coord.Create(cmd.Context(), parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (#%d) under #%d\n", n.Label, n.ID, n.ParentID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&parent, "parent", core.VirtualRootID, "Parent Bommel ID (0 for top level)")

	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:   "rename ID LABEL",
		Short: "Rename a Bommel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("emoji") {
				if n, ok := coord.Store().Get(id); ok {
					emoji = n.Emoji
				}
			}
			if err := coord.Rename(cmd.Context(), id, args[1], emoji); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&emoji, "emoji", "", "Emoji shown before the label")

	return cmd
}

func newMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID PARENT",
		Short: "Reparent a Bommel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			parent, err := parseID(args[1])
			if err != nil {
				return err
			}
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.Move(cmd.Context(), id, parent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved #%d under #%d\n", id, parent)
			return nil
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	var handling string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a Bommel; its children move to its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.Delete(cmd.Context(), id, core.ParseTransactionHandling(handling)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&handling, "transactions", "", "What to do with its transactions (unlink|reassign)")

	return cmd
}
