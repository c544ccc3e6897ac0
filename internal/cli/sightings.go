package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"facewatch-go/internal/database"
	"facewatch-go/internal/models"
	"facewatch-go/internal/util/timezone"

	"github.com/spf13/cobra"
)

var sightingsOpts struct {
	name  string
	runID string
	since time.Duration
	limit int
}

var sightingsCmd = &cobra.Command{
	Use:   "sightings",
	Short: "List recorded sightings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.DB.Enabled {
			return errors.New("the sighting history is disabled (db.enabled = false)")
		}

		db, err := database.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close(db)

		filter := database.SightingFilter{
			Name:  sightingsOpts.name,
			RunID: sightingsOpts.runID,
			Limit: sightingsOpts.limit,
		}
		if sightingsOpts.since > 0 {
			filter.Since = timezone.Now().Add(-sightingsOpts.since)
		}

		sightings, total, err := database.NewSQLiteRepository(db).ListSightings(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list sightings: %w", err)
		}

		printSightings(cmd.OutOrStdout(), sightings, total)
		return nil
	},
}

func init() {
	sightingsCmd.Flags().StringVar(&sightingsOpts.name, "name", "", "only sightings of this name")
	sightingsCmd.Flags().StringVar(&sightingsOpts.runID, "run", "", "only sightings of this run ID")
	sightingsCmd.Flags().DurationVar(&sightingsOpts.since, "since", 0, "only sightings newer than this, e.g. 2h")
	sightingsCmd.Flags().IntVarP(&sightingsOpts.limit, "limit", "n", 20, "maximum number of rows")
	rootCmd.AddCommand(sightingsCmd)
}

func printSightings(out io.Writer, sightings []models.Sighting, total int64) {
	if len(sightings) == 0 {
		fmt.Fprintln(out, "No sightings found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSEEN\tNAME\tDISTANCE\tFRAME\tSNAPSHOT")
	fmt.Fprintln(w, "--\t----\t----\t--------\t-----\t--------")
	for _, s := range sightings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%d\t%s\n",
			s.ID, timezone.Format(s.SeenAt, "2006-01-02 15:04:05"), s.Name, s.Distance, s.FrameIndex, s.SnapshotPath)
	}
	w.Flush()
	fmt.Fprintf(out, "%d of %d sightings\n", len(sightings), total)
}
