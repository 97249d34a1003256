package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	metadataFile = "metadata.json"
	layoutFile   = "layout.csv"
	traceFile    = "trace.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Preset    string             `json:"preset,omitempty"`
	Dataset   string             `json:"dataset"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Particles int                `json:"particles"`
	Anchors   int                `json:"anchors"`
	Phases    []string           `json:"phases"`
	Steps     int                `json:"steps"`
	Elapsed   time.Duration      `json:"elapsed"`
	Completed bool               `json:"completed"`
	Error     string             `json:"error,omitempty"`
	Colorized bool               `json:"colorized"`
	Metrics   map[string]float64 `json:"metrics"`
}

// TracePoint is one step of the alpha and energy history of a run.
type TracePoint struct {
	Step    int
	Elapsed time.Duration
	Alpha   float64
	Energy  float64
	Moving  int
}

// Save writes a new run directory and returns its id.
func (s *Store) Save(meta RunMetadata, layout []sim.ParticleView, trace []TracePoint) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := s.Dir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, layoutFile), layoutRows(layout)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, traceFile), traceRows(trace)); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Sync()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

var layoutHeader = []string{"id", "kind", "key", "category", "country", "x", "y", "vx", "vy", "radius"}

func layoutRows(layout []sim.ParticleView) [][]string {
	rows := make([][]string, 0, len(layout)+1)
	rows = append(rows, layoutHeader)
	for _, p := range layout {
		rows = append(rows, []string{
			strconv.Itoa(int(p.ID)),
			p.Kind.String(),
			p.Key,
			p.Category,
			p.Country,
			ftoa(p.Pos.X),
			ftoa(p.Pos.Y),
			ftoa(p.Vel.X),
			ftoa(p.Vel.Y),
			ftoa(p.Radius),
		})
	}
	return rows
}

var traceHeader = []string{"step", "elapsed_ms", "alpha", "energy", "moving"}

func traceRows(trace []TracePoint) [][]string {
	rows := make([][]string, 0, len(trace)+1)
	rows = append(rows, traceHeader)
	for _, t := range trace {
		rows = append(rows, []string{
			strconv.Itoa(t.Step),
			strconv.FormatInt(t.Elapsed.Milliseconds(), 10),
			ftoa(t.Alpha),
			ftoa(t.Energy),
			strconv.Itoa(t.Moving),
		})
	}
	return rows
}

// List returns every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string, header []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: missing header", filepath.Base(path))
	}
	return records[1:], nil
}

// rowParser converts CSV fields and keeps the first error.
type rowParser struct {
	rec []string
	err error
}

func (p *rowParser) int(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.rec[i])
	p.err = err
	return v
}

func (p *rowParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.rec[i], 64)
	p.err = err
	return v
}

func (s *Store) LoadLayout(runID string) ([]sim.ParticleView, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), layoutFile), layoutHeader)
	if err != nil {
		return nil, err
	}

	out := make([]sim.ParticleView, 0, len(records))
	for i, rec := range records {
		rp := &rowParser{rec: rec}
		p := sim.ParticleView{
			ID:       dynamo.ParticleID(rp.int(0)),
			Kind:     dynamo.KindFree,
			Key:      rec[2],
			Category: rec[3],
			Country:  rec[4],
			Pos:      r2.Vec{X: rp.float(5), Y: rp.float(6)},
			Vel:      r2.Vec{X: rp.float(7), Y: rp.float(8)},
			Radius:   rp.float(9),
		}
		if rp.err != nil {
			return nil, fmt.Errorf("layout row %d: %w", i+1, rp.err)
		}
		if rec[1] == dynamo.KindAnchor.String() {
			p.Kind = dynamo.KindAnchor
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) LoadTrace(runID string) ([]TracePoint, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), traceFile), traceHeader)
	if err != nil {
		return nil, err
	}

	out := make([]TracePoint, 0, len(records))
	for i, rec := range records {
		rp := &rowParser{rec: rec}
		t := TracePoint{
			Step:    rp.int(0),
			Elapsed: time.Duration(rp.int(1)) * time.Millisecond,
			Alpha:   rp.float(2),
			Energy:  rp.float(3),
			Moving:  rp.int(4),
		}
		if rp.err != nil {
			return nil, fmt.Errorf("trace row %d: %w", i+1, rp.err)
		}
		out = append(out, t)
	}
	return out, nil
}
