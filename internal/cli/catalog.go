package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/auction-room-backend/internal/catalog"
)

func newCatalogCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and import season catalogs",
	}
	cmd.AddCommand(newCatalogShowCmd(root))
	cmd.AddCommand(newCatalogImportCmd(root))
	return cmd
}

func newCatalogShowCmd(root *rootOptions) *cobra.Command {
	var (
		season string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a season's franchises and previous squads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			provider, err := newCatalogProvider(cfg, db)
			if err != nil {
				return err
			}
			if season == "" {
				season = cfg.Catalog.Season
			}
			cat, err := provider.Load(cmd.Context(), season)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cat)
			}
			return printCatalog(cmd.OutOrStdout(), cat)
		},
	}
	cmd.Flags().StringVar(&season, "season", "", "Season to show (default: catalog.season)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw catalog as JSON")
	return cmd
}

func newCatalogImportCmd(root *rootOptions) *cobra.Command {
	var (
		dir    string
		season string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a season from JSON files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("catalog import needs postgres.dsn")
			}
			if season == "" {
				season = cfg.Catalog.Season
			}

			var src catalog.Provider = catalog.NewEmbeddedProvider()
			if dir != "" {
				src = catalog.NewDirProvider(dir)
			}
			cat, err := src.Load(cmd.Context(), season)
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			return importCatalog(cmd.Context(), catalog.NewPostgresProvider(db), cat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "from", "", "Directory of <season>.json files (default: built-in data)")
	cmd.Flags().StringVar(&season, "season", "", "Season to import (default: catalog.season)")
	return cmd
}

func importCatalog(ctx context.Context, dst *catalog.PostgresProvider, cat *catalog.Catalog, w io.Writer) error {
	if err := dst.Migrate(ctx); err != nil {
		return err
	}
	if err := dst.Import(ctx, cat); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "imported season %s: %d franchises, %d entities\n", cat.Season, len(cat.Franchises), len(cat.Entities))
	return err
}

func printCatalog(w io.Writer, cat *catalog.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Season %s: %d entities\n\n", cat.Season, len(cat.Entities))
	fmt.Fprintln(tw, "FRANCHISE\tNAME\tPREVIOUS SQUAD\tSQUAD VALUE")

	for _, f := range cat.Franchises {
		squad := cat.Squad(f.ID)
		var value int64
		for _, id := range squad {
			if e, ok := cat.Entity(id); ok {
				value += e.BasePrice
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.ID, f.Name, len(squad), value)
	}

	free := 0
	for _, e := range cat.Entities {
		if _, ok := cat.PreviousTeam(e.ID); !ok {
			free++
		}
	}
	fmt.Fprintf(tw, "\nUnattached entities: %d\n", free)
	return tw.Flush()
}
