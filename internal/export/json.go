package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/storage"
)

type ParticleData struct {
	ID       int     `json:"id"`
	Kind     string  `json:"kind"`
	Key      string  `json:"key,omitempty"`
	Category string  `json:"category,omitempty"`
	Country  string  `json:"country,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
}

type TraceData struct {
	Step      int     `json:"step"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Alpha     float64 `json:"alpha"`
	Energy    float64 `json:"energy"`
	Moving    int     `json:"moving"`
}

type ExportData struct {
	Run       storage.RunMetadata `json:"run"`
	Particles []ParticleData      `json:"particles"`
	Trace     []TraceData         `json:"trace,omitempty"`
}

// ExportJSON writes a stored run as one indented JSON document.
func ExportJSON(w io.Writer, meta storage.RunMetadata, layout []sim.ParticleView, trace []storage.TracePoint) error {
	data := ExportData{
		Run:       meta,
		Particles: make([]ParticleData, len(layout)),
		Trace:     make([]TraceData, len(trace)),
	}
	for i, p := range layout {
		data.Particles[i] = ParticleData{
			ID:       int(p.ID),
			Kind:     p.Kind.String(),
			Key:      p.Key,
			Category: p.Category,
			Country:  p.Country,
			X:        p.Pos.X,
			Y:        p.Pos.Y,
			VX:       p.Vel.X,
			VY:       p.Vel.Y,
		}
	}
	for i, t := range trace {
		data.Trace[i] = TraceData{
			Step:      t.Step,
			ElapsedMs: t.Elapsed.Milliseconds(),
			Alpha:     t.Alpha,
			Energy:    t.Energy,
			Moving:    t.Moving,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
