package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"roomcore/pkg/domain"
)

func scenesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List scenes and their zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "SCENE\tNAME\tTYPE\tZONES")
			for _, sc := range svc.Registry().ListScenes() {
				ids := make([]string, 0, len(sc.Zones))
				for _, z := range sc.Zones {
					ids = append(ids, z.ID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sc.ID, sc.Name, sc.Type, strings.Join(ids, ","))
			}
			return w.Flush()
		},
	}
}

func zonesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "zones <scene>",
		Short: "List the zones of a scene in detection order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			zones, err := svc.Registry().ListZones(args[0])
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ZONE\tNAME\tBOUNDS\tACCEPTS")
			for _, z := range zones {
				b := z.Bounds
				fmt.Fprintf(w, "%s\t%s\t%g,%g %gx%g\t%s\n", z.ID, z.Name, b.X, b.Y, b.Width, b.Height, strings.Join(z.PlaceableTypes, ","))
			}
			return w.Flush()
		},
	}
}

func detectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <scene> <x> <y>",
		Short: "Print the zone containing a scene point",
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
			if _, err := svc.Registry().Scene(args[0]); err != nil {
				return err
			}
			zoneID, ok := svc.Registry().DetectZone(args[0], x, y)
			if !ok {
				zoneID = "-"
			}
			fmt.Fprintln(cmd.OutOrStdout(), zoneID)
			return nil
		},
	}
}

func parsePoint(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("y: %w", err)
	}
	if !(domain.Point{X: x, Y: y}).Finite() {
		return 0, 0, fmt.Errorf("(%s, %s): %w", xs, ys, domain.ErrInvalidPosition)
	}
	return x, y, nil
}
