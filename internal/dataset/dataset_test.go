package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

const sample = `[
  {
    "title": "Apis mellifera",
    "category": "bee",
    "geoLocation": [{"L2": {"type": "Country", "content": "France"}}],
    "indexedStructured": {"tax_order": ["Hymenoptera"], "tax_family": ["Apidae"]}
  },
  {
    "title": "Luna moth",
    "geoLocation": [{"L1": {"content": "North America"}}],
    "indexedStructured": {}
  },
  {
    "title": "Morpho",
    "geoLocation": "unknown",
    "indexedStructured": {"tax_order": ["Lepidoptera"], "tax_family": ["Nymphalidae"]}
  },
  {
    "title": "Wasp",
    "indexedStructured": {"tax_order": ["Hymenoptera"], "tax_family": ["Vespidae"]}
  }
]`

func TestDecode(t *testing.T) {
	g := NewWithT(t)
	recs, err := Decode(strings.NewReader(sample))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(recs).To(Equal([]Record{
		{Title: "Apis mellifera", Category: "bee", Country: "France"},
		{Title: "Luna moth", Category: "moth", Country: UnknownCountry},
		{Title: "Morpho", Category: "butterfly", Country: UnknownCountry},
		{Title: "Wasp", Category: "other hymenoptera", Country: UnknownCountry},
	}))
	g.Expect(Categories(recs)).To(Equal([]string{"bee", "moth", "butterfly", "other hymenoptera"}))
	g.Expect(Countries(recs)).To(Equal([]string{"France", UnknownCountry}))
}

func TestLoadJSON(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "data.json")
	g.Expect(os.WriteFile(path, []byte(sample), 0o644)).To(Succeed())

	recs, err := LoadJSON(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(recs).To(HaveLen(4))

	_, err = LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	g.Expect(err).To(HaveOccurred())

	bad := filepath.Join(t.TempDir(), "bad.json")
	g.Expect(os.WriteFile(bad, []byte("{"), 0o644)).To(Succeed())
	_, err = LoadJSON(bad)
	g.Expect(err).To(MatchError(ContainSubstring("decode records")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		order, family, title string
		want                 string
	}{
		{"Hymenoptera", "Halictidae", "", "bee"},
		{"hymenoptera", "formicidae", "bee-like ant", "other hymenoptera"},
		{"Lepidoptera", "Pieridae", "", "butterfly"},
		{"Lepidoptera", "Noctuidae", "butterfly", "moth"},
		{"", "", "Bumble Bee", "bee"},
		{"", "", "Swallowtail Butterfly", "butterfly"},
		{"Diptera", "", "Moth fly", "moth"},
		{"", "", "Beetle", "bee"},
		{"", "", "Dragonfly", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.title, func(t *testing.T) {
			if got := Classify(tt.order, tt.family, tt.title); got != tt.want {
				t.Errorf("Classify(%q, %q, %q) = %q, want %q", tt.order, tt.family, tt.title, got, tt.want)
			}
		})
	}
}

func TestSyntheticDeterministic(t *testing.T) {
	g := NewWithT(t)
	a := Synthetic(200, 42)
	b := Synthetic(200, 42)
	g.Expect(a).To(Equal(b))
	g.Expect(a).To(HaveLen(200))
	g.Expect(len(Countries(a))).To(BeNumerically(">", 3))
	g.Expect(Categories(a)).To(ContainElements("bee", "butterfly", "moth"))
}
