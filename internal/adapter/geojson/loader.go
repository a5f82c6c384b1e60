package geojson

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/couchcryptid/climate-atlas/internal/domain"
)

// LoadRegions compiles every *.json, *.geojson, and *.shp file at the top
// level of fsys into a region keyed by its lower-cased base name. A shapefile
// needs its .dbf next to it. Unreadable or undecodable files are logged and
// skipped, so their key stays unknown.
// Files whose geometry is malformed are still indexed and report
// ErrMalformedGeometry on lookup.
func LoadRegions(fsys fs.FS, logger *slog.Logger) (*domain.RegionIndex, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read regions dir: %w", err)
	}

	var regions []*domain.Region
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ext, ok := regionKey(e.Name())
		if !ok {
			continue
		}

		var r *domain.Region
		if ext == ".shp" {
			r, err = decodeShapefile(fsys, e.Name(), key)
		} else {
			var data []byte
			data, err = fs.ReadFile(fsys, e.Name())
			if err != nil {
				logger.Warn("skipping unreadable region file", "file", e.Name(), "error", err)
				continue
			}
			r, err = domain.DecodeRegion(key, data)
		}
		if err != nil {
			logger.Warn("skipping undecodable region file", "file", e.Name(), "error", err)
			continue
		}
		if r.Err() != nil {
			logger.Warn("region geometry unusable", "region", r.Key(), "file", e.Name(), "error", r.Err())
		}
		regions = append(regions, r)
	}

	logger.Info("regions loaded", "count", len(regions))
	return domain.NewRegionIndex(regions, logger), nil
}

func regionKey(name string) (key, ext string, ok bool) {
	ext = strings.ToLower(path.Ext(name))
	switch ext {
	case ".json", ".geojson", ".shp":
		return strings.ToLower(strings.TrimSuffix(name, path.Ext(name))), ext, true
	default:
		return "", "", false
	}
}
