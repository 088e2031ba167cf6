package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filmatlas/moviemeta/internal/app"
	"github.com/filmatlas/moviemeta/internal/catalog"
)

// newResolveCmd creates the 'resolve' subcommand: one-shot resolution of a
// movie name from the command line.
func newResolveCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <movie name>",
		Short: "Resolve a movie name and print its metadata record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			service := app.New(cfg, logger)
			rec, err := service.Resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(cmd, rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func printRecord(cmd *cobra.Command, rec catalog.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title:   %s\n", rec.Title)
	fmt.Fprintf(out, "Year:    %s\n", rec.Year)
	fmt.Fprintf(out, "Rating:  %s\n", rec.Rating)
	fmt.Fprintf(out, "Genres:  %s\n", strings.Join(rec.Genres, ", "))
	fmt.Fprintf(out, "Cast:    %s\n", strings.Join(rec.Cast, ", "))
	fmt.Fprintf(out, "Poster:  %s\n", rec.Poster)
	fmt.Fprintf(out, "Summary: %s\n", rec.Summary)
}

// exitCodeFor maps pipeline error kinds onto process exit codes so scripts
// can distinguish "not found" from transport failures.
func exitCodeFor(err error) int {
	switch catalog.KindOf(err) {
	case catalog.KindInvalidArgs:
		return 2
	case catalog.KindNoResults:
		return 3
	case catalog.KindNetwork:
		return 4
	case catalog.KindParse:
		return 5
	default:
		return 1
	}
}
