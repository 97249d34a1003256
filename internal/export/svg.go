package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/stage"
)

// MovingSpeed is the speed above which a particle is drawn on top.
const MovingSpeed = 0.1

type LayoutOptions struct {
	Width     float64
	Height    float64
	Colorized bool
	// Subtitles labels each country cluster below its anchor.
	Subtitles bool
}

// LayoutToSVG renders a particle layout centred on the origin. Anchors are
// not drawn; moving particles are drawn after stationary ones.
func LayoutToSVG(layout []sim.ParticleView, opts LayoutOptions) string {
	w, h := opts.Width, opts.Height

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="%.1f %.1f %.0f %.0f">
<rect x="%.1f" y="%.1f" width="100%%" height="100%%" fill="#ffffff"/>
`, w, h, -w/2, -h/2, w, h, -w/2, -h/2))

	var stationary, moving []sim.ParticleView
	for _, p := range layout {
		switch {
		case p.IsAnchor():
		case p.Speed() > MovingSpeed:
			moving = append(moving, p)
		default:
			stationary = append(stationary, p)
		}
	}

	sb.WriteString("<g>\n")
	for _, group := range [][]sim.ParticleView{stationary, moving} {
		for _, p := range group {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, p.Pos.X, p.Pos.Y, p.Radius, stage.Color(p.Category, opts.Colorized)))
		}
	}
	sb.WriteString("</g>\n")

	if opts.Subtitles {
		sb.WriteString(`<g font-family="sans-serif" font-size="14" fill="#333333" text-anchor="middle">` + "\n")
		for _, p := range layout {
			if !p.IsAnchor() || !stage.IsCountryKey(p.Key) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f">%s</text>
`, p.Pos.X, p.Pos.Y+30, html.EscapeString(stage.Label(p.Key))))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

type Point struct{ X, Y float64 }

// SeriesToSVG draws points as a single polyline scaled to the canvas.
func SeriesToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	// Find bounds
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
