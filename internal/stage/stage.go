// Package stage places the anchors of the layout on a viewport centred on
// the origin: the initial cluster near the top, a row of category anchors
// beneath it and a grid of country anchors further down.
package stage

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// InitKey names the anchor every particle starts linked to.
const InitKey = "init"

const (
	categoryPrefix = "category:"
	countryPrefix  = "country:"
)

func CategoryKey(category string) string { return categoryPrefix + category }
func CountryKey(country string) string   { return countryPrefix + country }

// Label strips the grouping prefix from an anchor key.
func Label(key string) string {
	for _, prefix := range []string{categoryPrefix, countryPrefix} {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			return rest
		}
	}
	return key
}

// IsCountryKey reports whether key names a country anchor.
func IsCountryKey(key string) bool {
	return strings.HasPrefix(key, countryPrefix)
}

type Viewport struct {
	Width  float64
	Height float64
}

func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport must have positive size, got %gx%g", v.Width, v.Height)
	}
	return nil
}

// Rect is the viewport in simulation coordinates.
func (v Viewport) Rect() r2.Box {
	return r2.Box{
		Min: r2.Vec{X: -v.Width / 2, Y: -v.Height / 2},
		Max: r2.Vec{X: v.Width / 2, Y: v.Height / 2},
	}
}

func (v Viewport) InitPos() r2.Vec {
	return r2.Vec{X: 0, Y: -v.Height/2 + 100}
}

// CategoryRow spaces the categories evenly on one row, at most 200 apart.
func (v Viewport) CategoryRow(categories []string) map[string]r2.Vec {
	out := make(map[string]r2.Vec, len(categories))
	n := float64(len(categories))
	if n == 0 {
		return out
	}
	spacing := math.Min(v.Width/n, 200)
	y := -v.Height/4 + 150
	for i, c := range categories {
		out[c] = r2.Vec{X: (float64(i) - (n-1)/2) * spacing, Y: y}
	}
	return out
}

// CountryGrid lays the countries out row by row on a square grid, at most
// 150 apart, centred a quarter height below the origin.
func (v Viewport) CountryGrid(countries []string) map[string]r2.Vec {
	out := make(map[string]r2.Vec, len(countries))
	if len(countries) == 0 {
		return out
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(countries)))))
	nc := float64(cols)
	sx := math.Min(v.Width/nc, 150)
	sy := math.Min(v.Height/nc, 150)
	for i, c := range countries {
		row, col := float64(i/cols), float64(i%cols)
		out[c] = r2.Vec{
			X: (col - (nc-1)/2) * sx,
			Y: (row-(nc-1)/2)*sy + v.Height/4,
		}
	}
	return out
}

// Spawn returns a position within 25 of the initial anchor on each axis.
func (v Viewport) Spawn(rng *rand.Rand) r2.Vec {
	home := v.InitPos()
	return r2.Vec{
		X: home.X + (rng.Float64()-0.5)*50,
		Y: home.Y + (rng.Float64()-0.5)*50,
	}
}

// Place creates the init anchor, one anchor per category and one per
// country, in that order.
func (v Viewport) Place(st *dynamo.Store, categories, countries []string) error {
	if _, err := st.CreateAnchor(InitKey, v.InitPos()); err != nil {
		return err
	}
	row := v.CategoryRow(categories)
	for _, c := range categories {
		if _, err := st.CreateAnchor(CategoryKey(c), row[c]); err != nil {
			return fmt.Errorf("place category %q: %w", c, err)
		}
	}
	grid := v.CountryGrid(countries)
	for _, c := range countries {
		if _, err := st.CreateAnchor(CountryKey(c), grid[c]); err != nil {
			return fmt.Errorf("place country %q: %w", c, err)
		}
	}
	return nil
}
