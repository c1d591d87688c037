package netlab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recordingLogger is a [Logger] remembering warnings and errors.
type recordingLogger struct {
	NullLogger
	warnings []string
	errors   []string
}

func (rl *recordingLogger) Warnf(format string, v ...any) {
	rl.warnings = append(rl.warnings, fmt.Sprintf(format, v...))
}

func (rl *recordingLogger) Errorf(format string, v ...any) {
	rl.errors = append(rl.errors, fmt.Sprintf(format, v...))
}

// edgeValues returns m[i][j] for each edge (i, j) in both directions.
func edgeValues(ms *MatrixSet, m Matrix) []float64 {
	var out []float64
	for _, e := range ms.Edges() {
		out = append(out, m[e[0]][e[1]], m[e[1]][e[0]])
	}
	return out
}

func TestGenerateMatrixSets(t *testing.T) {
	t.Run("stepped attribute on a chain", func(t *testing.T) {
		tc := &TopologyConfig{
			Name:   "chain",
			Nodes:  3,
			Family: FamilyLinear,
			Attributes: []LinkAttribute{{
				Name:      AttributeLatency,
				InitValue: []float64{5},
				StepLen:   10,
				StepNum:   3,
			}},
		}
		if !tc.Compound() {
			t.Fatal("expected a compound topology")
		}
		sets, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		if len(sets) != 4 {
			t.Fatal("expected four sets, got", len(sets))
		}
		for idx, ms := range sets {
			value := 5 + 10*float64(idx)
			expect := Matrix{
				{0, value, 0},
				{value, 0, value},
				{0, value, 0},
			}
			if diff := cmp.Diff(expect, ms.Latency); diff != "" {
				t.Fatal(idx, diff)
			}
			if ms.Name != fmt.Sprintf("chain#%d", idx) {
				t.Fatal("unexpected name", ms.Name)
			}
			if diff := cmp.Diff(NewMatrix(3), ms.Loss); diff != "" {
				t.Fatal(diff)
			}
		}
	})

	t.Run("values are never written outside the adjacency edges", func(t *testing.T) {
		tc := &TopologyConfig{
			Nodes:  5,
			Family: FamilyStar,
			Attributes: []LinkAttribute{
				{Name: AttributeLoss, InitValue: []float64{1}},
				{Name: AttributeBandwidthForward, InitValue: []float64{100}},
				{Name: AttributeJitter, InitValue: []float64{1, 2, 3, 4, 5}},
			},
		}
		sets, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		ms := sets[0]
		for _, mt := range AllMatrixTypes[1:] {
			m := ms.Get(mt)
			for i := range m {
				for j := range m[i] {
					if !ms.Adjacency.Linked(i, j) && m[i][j] != 0 {
						t.Fatal(mt, i, j, "is not zero")
					}
				}
			}
		}
		// per-row fill: row i uses entry i
		if ms.Jitter[3][0] != 4 || ms.Jitter[0][3] != 1 {
			t.Fatal("unexpected jitter", ms.Jitter)
		}
	})

	t.Run("out of range values are clamped and logged", func(t *testing.T) {
		logger := &recordingLogger{}
		tc := &TopologyConfig{
			Nodes:  2,
			Family: FamilyLinear,
			Attributes: []LinkAttribute{
				{Name: AttributeLatency, InitValue: []float64{2000}},
				{Name: AttributeLoss, InitValue: []float64{-3}},
			},
		}
		sets, err := GenerateMatrixSets(tc, Limits{}, logger)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]float64{1000, 1000}, edgeValues(sets[0], sets[0].Latency)); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]float64{0, 0}, edgeValues(sets[0], sets[0].Loss)); diff != "" {
			t.Fatal(diff)
		}
		if len(logger.errors) != 4 {
			t.Fatal("expected four clamping errors, got", logger.errors)
		}
	})

	t.Run("custom limits", func(t *testing.T) {
		tc := &TopologyConfig{
			Nodes:      2,
			Family:     FamilyLinear,
			Attributes: []LinkAttribute{{Name: AttributeBandwidthForward, InitValue: []float64{500}}},
		}
		sets, err := GenerateMatrixSets(tc, Limits{MaxBandwidth: 100}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		if sets[0].Bandwidth[0][1] != 100 {
			t.Fatal("expected clamping to 100", sets[0].Bandwidth)
		}
	})

	t.Run("the backward bandwidth overwrites the lower triangle", func(t *testing.T) {
		tc := &TopologyConfig{
			Nodes:  3,
			Family: FamilyLinear,
			Attributes: []LinkAttribute{
				{Name: AttributeBandwidthForward, InitValue: []float64{100}},
				{Name: AttributeBandwidthBackward, InitValue: []float64{50}},
			},
		}
		sets, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		expect := Matrix{
			{0, 100, 0},
			{50, 0, 100},
			{0, 50, 0},
		}
		if diff := cmp.Diff(expect, sets[0].Bandwidth); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("several stepped attributes yield the cross product", func(t *testing.T) {
		tc := &TopologyConfig{
			Name:   "x",
			Nodes:  2,
			Family: FamilyLinear,
			Attributes: []LinkAttribute{
				{Name: AttributeLoss, InitValue: []float64{0}, StepLen: 1, StepNum: 1},
				{Name: AttributeBandwidthForward, InitValue: []float64{10}, StepLen: 10, StepNum: 2},
			},
		}
		sets, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		var got [][2]float64
		for _, ms := range sets {
			got = append(got, [2]float64{ms.Loss[0][1], ms.Bandwidth[0][1]})
		}
		expect := [][2]float64{
			{0, 10}, {0, 20}, {0, 30},
			{1, 10}, {1, 20}, {1, 30},
		}
		if diff := cmp.Diff(expect, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("no attributes means zero matrices and a warning", func(t *testing.T) {
		logger := &recordingLogger{}
		tc := &TopologyConfig{Name: "bare", Nodes: 3, Family: FamilyMesh}
		sets, err := GenerateMatrixSets(tc, Limits{}, logger)
		if err != nil {
			t.Fatal(err)
		}
		if len(sets) != 1 || sets[0].Name != "bare" {
			t.Fatal("expected a single set named bare")
		}
		if err := sets[0].Validate(); err != nil {
			t.Fatal(err)
		}
		if len(logger.warnings) != 1 {
			t.Fatal("expected a warning", logger.warnings)
		}
	})

	t.Run("configuration errors", func(t *testing.T) {
		cases := []struct {
			name string
			tc   *TopologyConfig
		}{{
			name: "nil config",
			tc:   nil,
		}, {
			name: "unknown attribute",
			tc: &TopologyConfig{Nodes: 2, Family: FamilyLinear, Attributes: []LinkAttribute{
				{Name: "mtu", InitValue: []float64{1500}},
			}},
		}, {
			name: "wrong init_value length",
			tc: &TopologyConfig{Nodes: 3, Family: FamilyLinear, Attributes: []LinkAttribute{
				{Name: AttributeLoss, InitValue: []float64{1, 2}},
			}},
		}, {
			name: "negative step_num",
			tc: &TopologyConfig{Nodes: 3, Family: FamilyLinear, Attributes: []LinkAttribute{
				{Name: AttributeLoss, InitValue: []float64{1}, StepNum: -1},
			}},
		}, {
			name: "no nodes",
			tc:   &TopologyConfig{Family: FamilyLinear},
		}}
		for _, tt := range cases {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := GenerateMatrixSets(tt.tc, Limits{}, &NullLogger{}); !errors.Is(err, ErrConfig) {
					t.Fatal("unexpected error", err)
				}
			})
		}
	})

	t.Run("matrix file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mesh.json")
		data := `{"data": [
			{"matrix_type": 0, "matrix_data": [[0, 1], [1, 0]]},
			{"matrix_type": 3, "matrix_data": [[0, 7], [9, 0]]}
		]}`
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}

		t.Run("loads a single set", func(t *testing.T) {
			tc := &TopologyConfig{Name: "file", MatrixFile: path}
			sets, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{})
			if err != nil {
				t.Fatal(err)
			}
			if len(sets) != 1 || sets[0].Name != "file" {
				t.Fatal("unexpected sets", sets)
			}
			if diff := cmp.Diff(Matrix{{0, 7}, {9, 0}}, sets[0].Latency); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("out-of-range values are clamped", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "negative.json")
			data := `{"data": [
				{"matrix_type": 0, "matrix_data": [[0, 1], [1, 0]]},
				{"matrix_type": 2, "matrix_data": [[0, -1], [150, 0]]},
				{"matrix_type": 3, "matrix_data": [[0, -20], [5000, 0]]}
			]}`
			if err := os.WriteFile(path, []byte(data), 0600); err != nil {
				t.Fatal(err)
			}
			logger := &recordingLogger{}
			sets, err := GenerateMatrixSets(&TopologyConfig{MatrixFile: path}, Limits{}, logger)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(Matrix{{0, 0}, {100, 0}}, sets[0].Loss); diff != "" {
				t.Fatal(diff)
			}
			if diff := cmp.Diff(Matrix{{0, 0}, {1000, 0}}, sets[0].Latency); diff != "" {
				t.Fatal(diff)
			}
			if len(logger.errors) != 4 {
				t.Fatal("expected four clamping errors", logger.errors)
			}
		})

		t.Run("node count mismatch", func(t *testing.T) {
			tc := &TopologyConfig{MatrixFile: path, Nodes: 3}
			if _, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{}); !errors.Is(err, ErrConfig) {
				t.Fatal("unexpected error", err)
			}
		})

		t.Run("missing file is fatal", func(t *testing.T) {
			tc := &TopologyConfig{MatrixFile: filepath.Join(t.TempDir(), "nonexistent.json")}
			if _, err := GenerateMatrixSets(tc, Limits{}, &NullLogger{}); !errors.Is(err, ErrConfig) {
				t.Fatal("unexpected error", err)
			}
		})
	})
}

func TestTopologyIterator(t *testing.T) {
	t.Run("non-compound topologies have exactly one set", func(t *testing.T) {
		iter, err := NewTopologyIteratorFromConfig(&TopologyConfig{Nodes: 2, Family: FamilyLinear}, Limits{}, &NullLogger{})
		if err != nil {
			t.Fatal(err)
		}
		if iter.Compound() || iter.Len() != 1 {
			t.Fatal("expected a single set")
		}
		if !iter.HasNext() {
			t.Fatal("expected HasNext")
		}
		if _, err := iter.Next(); err != nil {
			t.Fatal(err)
		}
		if iter.HasNext() || iter.Index() != 1 {
			t.Fatal("expected exhaustion")
		}
		if _, err := iter.Next(); !errors.Is(err, ErrExhausted) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("sets are returned in order", func(t *testing.T) {
		a, b := newTestSet(Matrix{{0}}), newTestSet(Matrix{{0}})
		a.Name, b.Name = "a", "b"
		iter := NewTopologyIterator(a, b)
		var names []string
		for iter.HasNext() {
			ms, err := iter.Next()
			if err != nil {
				t.Fatal(err)
			}
			names = append(names, ms.Name)
		}
		if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("the zero value is exhausted", func(t *testing.T) {
		var iter TopologyIterator
		if iter.HasNext() {
			t.Fatal("expected no sets")
		}
		if _, err := iter.Next(); !errors.Is(err, ErrExhausted) {
			t.Fatal("unexpected error", err)
		}
	})
}
