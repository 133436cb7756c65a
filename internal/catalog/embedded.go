package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed data/*.json
var embeddedSeasons embed.FS

// FSProvider reads "<season>.json" files from a file system.
type FSProvider struct {
	fsys fs.FS
}

// NewEmbeddedProvider serves the seasons compiled into the binary.
func NewEmbeddedProvider() *FSProvider {
	sub, err := fs.Sub(embeddedSeasons, "data")
	if err != nil {
		panic(err)
	}
	return &FSProvider{fsys: sub}
}

// NewDirProvider serves seasons from a directory on disk.
func NewDirProvider(dir string) *FSProvider {
	return &FSProvider{fsys: os.DirFS(dir)}
}

func (p *FSProvider) Load(ctx context.Context, season string) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if season == "" || filepath.Base(season) != season {
		return nil, fmt.Errorf("%w: %q", ErrSeasonNotFound, season)
	}

	data, err := fs.ReadFile(p.fsys, season+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrSeasonNotFound, season)
		}
		return nil, fmt.Errorf("read season %q: %w", season, err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrInvalidCatalog, season, err)
	}
	if c.Season == "" {
		c.Season = season
	}
	if err := c.Index(); err != nil {
		return nil, err
	}
	return &c, nil
}
