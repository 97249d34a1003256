package stage

// Colours used before and after the category phase.
const (
	Gray    = "#808080"
	Unknown = "#000000"
)

var categoryColors = map[string]string{
	"bee":       "#E1A282",
	"butterfly": "#80C9BC",
	"moth":      "#AFB1C7",
}

// Color returns the fill of a particle. Until colorized every particle is
// gray; afterwards unknown categories are black.
func Color(category string, colorized bool) string {
	if !colorized {
		return Gray
	}
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return Unknown
}
