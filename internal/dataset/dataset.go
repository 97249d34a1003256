// Package dataset reads specimen records into (category, country) pairs.
//
// The JSON format is the array written by the museum fetch step: each
// element carries a title, an optional category, the geoLocation array (or
// the string "unknown") and the taxonomic ranks under indexedStructured.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// UnknownCountry is used for records without a usable location.
const UnknownCountry = "Unknown"

type Record struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Country  string `json:"country"`
}

type rawRecord struct {
	Title             string          `json:"title"`
	Category          string          `json:"category"`
	GeoLocation       json.RawMessage `json:"geoLocation"`
	IndexedStructured struct {
		TaxOrder  []string `json:"tax_order"`
		TaxFamily []string `json:"tax_family"`
	} `json:"indexedStructured"`
}

type geoLocation struct {
	L2 *struct {
		Content string `json:"content"`
	} `json:"L2"`
}

func LoadJSON(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return recs, nil
}

func Decode(r io.Reader) ([]Record, error) {
	var raw []rawRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	out := make([]Record, 0, len(raw))
	for _, rr := range raw {
		category := rr.Category
		if category == "" {
			category = Classify(first(rr.IndexedStructured.TaxOrder), first(rr.IndexedStructured.TaxFamily), rr.Title)
		}
		out = append(out, Record{
			Title:    rr.Title,
			Category: category,
			Country:  country(rr.GeoLocation),
		})
	}
	return out, nil
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// country returns the L2 name of the first location.
func country(raw json.RawMessage) string {
	var locs []geoLocation
	if len(raw) == 0 || json.Unmarshal(raw, &locs) != nil {
		return UnknownCountry
	}
	if len(locs) == 0 || locs[0].L2 == nil || locs[0].L2.Content == "" {
		return UnknownCountry
	}
	return locs[0].L2.Content
}

var beeFamilies = map[string]bool{
	"apidae":        true,
	"halictidae":    true,
	"megachilidae":  true,
	"andrenidae":    true,
	"colletidae":    true,
	"melittidae":    true,
	"stenotritidae": true,
}

var butterflyFamilies = map[string]bool{
	"papilionidae": true,
	"pieridae":     true,
	"nymphalidae":  true,
	"lycaenidae":   true,
	"hesperiidae":  true,
	"riodinidae":   true,
}

// Classify derives a category from taxonomic order and family, falling back
// to keywords in the title.
func Classify(order, family, title string) string {
	order, family = strings.ToLower(order), strings.ToLower(family)
	switch order {
	case "hymenoptera":
		if beeFamilies[family] {
			return "bee"
		}
		return "other hymenoptera"
	case "lepidoptera":
		if butterflyFamilies[family] {
			return "butterfly"
		}
		return "moth"
	}

	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "bee"):
		return "bee"
	case strings.Contains(t, "butterfly"):
		return "butterfly"
	case strings.Contains(t, "moth"):
		return "moth"
	}
	return "unknown"
}

// Categories returns the distinct categories in first-seen order.
func Categories(recs []Record) []string {
	return distinct(recs, func(r Record) string { return r.Category })
}

// Countries returns the distinct countries in first-seen order.
func Countries(recs []Record) []string {
	return distinct(recs, func(r Record) string { return r.Country })
}

func distinct(recs []Record, key func(Record) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recs {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
