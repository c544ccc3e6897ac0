package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"facewatch-go/internal/config"
	"facewatch-go/internal/database"
	"facewatch-go/internal/gallery"
	"facewatch-go/internal/integrations/dlib"
	"facewatch-go/internal/integrations/facerecognition"
	"facewatch-go/internal/models"
	"facewatch-go/internal/recognition"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Encode the configured gallery images and report the result",
	Long: `Loads the face models, encodes every gallery image and prints one row
per identity. Each image must contain exactly one face. With the database
enabled the identities are stored as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		encoder, err := dlib.NewService(cfg.Recognition)
		if err != nil {
			return err
		}
		defer encoder.Close()

		g, identities, err := enrollGallery(cmd.Context(), encoder, cfg, os.Stderr)
		if err != nil {
			return err
		}

		if cfg.DB.Enabled {
			if err := storeIdentities(cmd.Context(), cfg.DB, identities); err != nil {
				return err
			}
		}

		printIdentities(cmd.OutOrStdout(), identities, g.Tolerance())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

// enrollGallery encodes the configured gallery with a progress bar on w
func enrollGallery(ctx context.Context, encoder facerecognition.Encoder, cfg *config.Config, w io.Writer) (*recognition.Gallery, []models.Identity, error) {
	samples := gallery.SamplesFromConfig(cfg.Gallery)

	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription("Enrolling gallery"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)

	g, err := gallery.Load(ctx, encoder, samples, cfg.Recognition.Tolerance, gallery.WithProgress(bar))
	if err != nil {
		return nil, nil, err
	}
	return g, identitiesFor(samples, g.Dimensions()), nil
}

// identitiesFor builds the stored form of an enrolled gallery
func identitiesFor(samples []gallery.Sample, dims int) []models.Identity {
	out := make([]models.Identity, len(samples))
	for i, s := range samples {
		out[i] = models.Identity{
			Name:       s.Name,
			SamplePath: s.Path,
			Dimensions: dims,
			Position:   i,
		}
	}
	return out
}

func storeIdentities(ctx context.Context, dbCfg config.DBConfig, identities []models.Identity) error {
	db, err := database.Open(dbCfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.NewSQLiteRepository(db).UpsertIdentities(ctx, identities); err != nil {
		return fmt.Errorf("failed to store identities: %w", err)
	}
	return nil
}

func printIdentities(out io.Writer, identities []models.Identity, tolerance float64) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tIMAGE\tDIMENSIONS")
	fmt.Fprintln(w, "-\t----\t-----\t----------")
	for _, id := range identities {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", id.Position, id.Name, id.SamplePath, id.Dimensions)
	}
	w.Flush()
	fmt.Fprintf(out, "%d identities enrolled, tolerance %.2f\n", len(identities), tolerance)
}
