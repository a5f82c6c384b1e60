package geojson

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// decodeShapefile builds a region from the first polygon record of a
// shapefile. Each part becomes a sub-polygon; rings are not classified as
// outer or hole, matching the exterior-ring-only region model.
func decodeShapefile(fsys fs.FS, name, key string) (*domain.Region, error) {
	shpFile, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	dbfFile, err := openSibling(fsys, name, ".dbf")
	if err != nil {
		shpFile.Close()
		return nil, fmt.Errorf("open shapefile attributes: %w", err)
	}

	reader := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer reader.Close()

	for reader.Next() {
		_, shape := reader.Shape()
		if p, ok := shape.(*shp.Polygon); ok {
			return domain.NewRegion(key, polygonToGeom(p), nil), nil
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", name, err)
	}
	return domain.NewRegion(key, nil, nil), nil
}

// openSibling opens the file next to name with the given extension, trying
// lower then upper case.
func openSibling(fsys fs.FS, name, ext string) (fs.File, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	f, err := fsys.Open(base + ext)
	if errors.Is(err, fs.ErrNotExist) {
		return fsys.Open(base + strings.ToUpper(ext))
	}
	return f, err
}

// polygonToGeom converts a shapefile polygon into a MultiPolygon with one
// single-ring polygon per part.
func polygonToGeom(p *shp.Polygon) *geom.MultiPolygon {
	flat := make([]float64, 0, 2*len(p.Points))
	endss := make([][]int, 0, len(p.Parts))
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if start < 0 || start > end || end > len(p.Points) {
			continue
		}
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		endss = append(endss, []int{len(flat)})
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, endss)
}
