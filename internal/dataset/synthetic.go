package dataset

import (
	"fmt"
	"math/rand"
)

var syntheticCountries = []string{
	"United States", "Costa Rica", "Brazil", "Peru", "Mexico", "Kenya",
	"Madagascar", "India", "Malaysia", "Australia", "France", UnknownCountry,
}

var syntheticCategories = []struct {
	name   string
	weight float64
}{
	{"bee", 0.35},
	{"butterfly", 0.3},
	{"moth", 0.3},
	{"other hymenoptera", 0.05},
}

// Synthetic generates n records deterministically from seed. Countries
// follow a skewed distribution so a few clusters dominate.
func Synthetic(n int, seed int64) []Record {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Record, n)
	for i := range out {
		cat := pickCategory(rng.Float64())
		c := syntheticCountries[int(float64(len(syntheticCountries))*rng.Float64()*rng.Float64())]
		out[i] = Record{
			Title:    fmt.Sprintf("%s specimen %d", cat, i+1),
			Category: cat,
			Country:  c,
		}
	}
	return out
}

func pickCategory(u float64) string {
	acc := 0.0
	for _, c := range syntheticCategories {
		acc += c.weight
		if u < acc {
			return c.name
		}
	}
	return syntheticCategories[len(syntheticCategories)-1].name
}
