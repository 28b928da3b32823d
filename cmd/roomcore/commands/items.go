package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roomcore/pkg/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printItems(w io.Writer, items []domain.PlacedItem) error {
	t := newTable(w)
	fmt.Fprintln(t, "INSTANCE\tITEM\tZONE\tX\tY")
	for _, it := range items {
		fmt.Fprintf(t, "%s\t%s\t%s\t%.1f\t%.1f\n", it.InstanceID, it.ItemID, it.ZoneID, it.Position.X, it.Position.Y)
	}
	return t.Flush()
}

// printPlaced reports a mutation result; warnings go to stderr.
func printPlaced(cmd *cobra.Command, item domain.PlacedItem, res domain.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%.1f, %.1f)\n", item.InstanceID, item.ItemID, item.ZoneID, item.Position.X, item.Position.Y)
	for _, v := range res.Violations {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", v.Rule, v.Message)
	}
}

func listCmd(a *app) *cobra.Command {
	var zone string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List placed items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			items := svc.Items()
			if zone != "" {
				items = svc.ItemsByZone(zone)
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "only list items in this zone")
	return cmd
}

func placeCmd(a *app) *cobra.Command {
	var (
		zone string
		x, y float64
	)
	cmd := &cobra.Command{
		Use:   "place <item>",
		Short: "Place an owned item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pos *domain.Point
			if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
				pos = &domain.Point{X: x, Y: y}
				if !pos.InRange() {
					return fmt.Errorf("--x %g --y %g: %w", x, y, domain.ErrInvalidPosition)
				}
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			placed, res, err := svc.PlaceItem(cmd.Context(), args[0], zone, pos)
			if err != nil {
				return err
			}
			printPlaced(cmd, placed, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "target zone (default: the item's default zone)")
	cmd.Flags().Float64Var(&x, "x", 0, "horizontal position 0-100")
	cmd.Flags().Float64Var(&y, "y", 0, "vertical position 0-100")
	return cmd
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <instance> <zone>",
		Short: "Move an item to a zone's default position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			moved, res, err := svc.MoveItemToZone(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printPlaced(cmd, moved, res)
			return nil
		},
	}
}

func positionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "position <instance> <x> <y>",
		Short: "Set an item's position; the zone follows the point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parsePoint(args[1], args[2])
			if err != nil {
				return err
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			updated, res, err := svc.UpdateItemPosition(cmd.Context(), args[0], domain.Point{X: x, Y: y})
			if err != nil {
				return err
			}
			printPlaced(cmd, updated, res)
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <instance>",
		Short: "Remove a placed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := svc.RemoveItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", removed.InstanceID, removed.ItemID)
			return nil
		},
	}
}

func unplacedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unplaced",
		Short: "List owned furniture that is not in the house",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			items, err := svc.UnplacedFurniture(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout())
			fmt.Fprintln(t, "ITEM\tNAME\tTYPE")
			for _, it := range items {
				fmt.Fprintf(t, "%s\t%s\t%s\n", it.ID, it.Name, it.Type)
			}
			return t.Flush()
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every placed item and delete the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards the saved room; rerun with --yes")
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "room reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
