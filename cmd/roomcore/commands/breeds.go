package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roomcore/internal/companion"
	"roomcore/internal/config"
)

func breedsCmd(a *app) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "breeds",
		Short: "Show which companion breeds the household has unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adopted := a.cfg.AdoptedAt
			if since != "" {
				ts, err := time.Parse(time.DateOnly, since)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				adopted = ts.UTC()
			}
			if adopted.IsZero() {
				return fmt.Errorf("no adoption date: pass --since or set %sADOPTED_AT", config.Prefix)
			}
			now := time.Now().UTC()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d days together\n", companion.ElapsedDays(adopted, now))
			t := newTable(out)
			fmt.Fprintln(t, "BREED\tNAME\tTRAITS")
			for _, b := range companion.UnlockedBreeds(adopted, now) {
				fmt.Fprintf(t, "%s\t%s\t%s\n", b.ID, b.Name, strings.Join(b.Traits, ","))
			}
			if err := t.Flush(); err != nil {
				return err
			}
			if next, days, ok := companion.NextUnlock(adopted, now); ok {
				fmt.Fprintf(out, "next: %s in %d days\n", next.Name, days)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "adoption date YYYY-MM-DD (default $ROOMCORE_ADOPTED_AT)")
	return cmd
}
