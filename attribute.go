package netlab

//
// Link attributes and value matrix generation
//

import (
	"fmt"
)

// Names of the link attributes accepted by [LinkAttribute].
const (
	AttributeLoss              = "loss"
	AttributeLatency           = "latency"
	AttributeJitter            = "jitter"
	AttributeBandwidthForward  = "bandwidth_forward"
	AttributeBandwidthBackward = "bandwidth_backward"
)

// LinkAttribute describes how to fill one value matrix.
type LinkAttribute struct {
	// Name is the MANDATORY attribute name (e.g., [AttributeLoss]).
	Name string

	// InitValue is the MANDATORY initial value. When it contains a single
	// entry, we broadcast it to every adjacency edge. Otherwise it must
	// contain one entry per node and entry i fills row i.
	InitValue []float64

	// StepLen is the OPTIONAL increment applied at each step.
	StepLen float64

	// StepNum is the OPTIONAL number of steps. When positive, the attribute
	// yields StepNum+1 matrices where step k adds k*StepLen to each edge.
	StepNum int
}

// Stepped returns whether this attribute yields more than one matrix.
func (la *LinkAttribute) Stepped() bool {
	return la.StepNum > 0
}

// Limits contains the domain maxima used to clamp value matrices.
type Limits struct {
	// MaxBandwidth is the maximum bandwidth in Mbps.
	MaxBandwidth float64

	// MaxLatency is the maximum one-way delay in milliseconds.
	MaxLatency float64

	// MaxJitter is the maximum jitter in milliseconds.
	MaxJitter float64

	// MaxLoss is the maximum loss in percent.
	MaxLoss float64
}

// DefaultLimits returns the default [Limits].
func DefaultLimits() Limits {
	return Limits{
		MaxBandwidth: 4000,
		MaxLatency:   1000,
		MaxJitter:    1000,
		MaxLoss:      100,
	}
}

// withDefaults replaces zero fields with the [DefaultLimits] ones.
func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxBandwidth <= 0 {
		l.MaxBandwidth = def.MaxBandwidth
	}
	if l.MaxLatency <= 0 {
		l.MaxLatency = def.MaxLatency
	}
	if l.MaxJitter <= 0 {
		l.MaxJitter = def.MaxJitter
	}
	if l.MaxLoss <= 0 {
		l.MaxLoss = def.MaxLoss
	}
	return l
}

// max returns the maximum value allowed for a matrix type.
func (l Limits) max(mt MatrixType) float64 {
	switch mt {
	case MatrixBandwidth:
		return l.MaxBandwidth
	case MatrixLatency:
		return l.MaxLatency
	case MatrixJitter:
		return l.MaxJitter
	case MatrixLoss:
		return l.MaxLoss
	default:
		return 1
	}
}

// attributeMatrixType maps an attribute name to its matrix type.
func attributeMatrixType(name string) (MatrixType, bool) {
	switch name {
	case AttributeLoss:
		return MatrixLoss, true
	case AttributeLatency:
		return MatrixLatency, true
	case AttributeJitter:
		return MatrixJitter, true
	case AttributeBandwidthForward, AttributeBandwidthBackward:
		return MatrixBandwidth, true
	default:
		return 0, false
	}
}

// fillVariants fills the edges of adj according to attr and returns one
// matrix per step. Non-edge entries are always zero.
func fillVariants(adj Matrix, attr *LinkAttribute) ([]Matrix, error) {
	n := adj.Dim()
	switch len(attr.InitValue) {
	case 1, n:
	default:
		return nil, fmt.Errorf("%w: %s: init_value has %d entries, want 1 or %d",
			ErrConfig, attr.Name, len(attr.InitValue), n)
	}
	if attr.StepNum < 0 {
		return nil, fmt.Errorf("%w: %s: negative step_num", ErrConfig, attr.Name)
	}
	var out []Matrix
	for step := 0; step <= attr.StepNum; step++ {
		m := NewMatrix(n)
		offset := float64(step) * attr.StepLen
		for i := 0; i < n; i++ {
			base := attr.InitValue[0]
			if len(attr.InitValue) > 1 {
				base = attr.InitValue[i]
			}
			for j := 0; j < n; j++ {
				if adj.Linked(i, j) {
					m[i][j] = base + offset
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// clampMatrix clamps every entry into [0, max], logging each violation as
// an error. Out-of-range values are not rejected.
func clampMatrix(m Matrix, mt MatrixType, limit float64, logger Logger) {
	for i := range m {
		for j := range m[i] {
			switch v := m[i][j]; {
			case v < 0:
				logger.Errorf("netlab: %s[%d][%d] = %s is negative; clamping to 0",
					mt, i, j, formatNumber(v))
				m[i][j] = 0
			case v > limit:
				logger.Errorf("netlab: %s[%d][%d] = %s exceeds %s; clamping",
					mt, i, j, formatNumber(v), formatNumber(limit))
				m[i][j] = limit
			}
		}
	}
}

// mergeBandwidth overlays the lower triangle of backward onto forward.
func mergeBandwidth(forward, backward Matrix) Matrix {
	out := forward.Clone()
	for i := range out {
		for j := 0; j < i; j++ {
			out[i][j] = backward[i][j]
		}
	}
	return out
}

// valueVariants computes, for each value matrix type, the list of
// candidate matrices. Types without attributes get a single zero matrix.
func valueVariants(
	adj Matrix,
	attrs []LinkAttribute,
	limits Limits,
	logger Logger,
) (map[MatrixType][]Matrix, error) {
	var forward, backward []Matrix
	out := map[MatrixType][]Matrix{}

	for idx := range attrs {
		attr := &attrs[idx]
		mt, ok := attributeMatrixType(attr.Name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown link attribute %q", ErrConfig, attr.Name)
		}
		variants, err := fillVariants(adj, attr)
		if err != nil {
			return nil, err
		}
		for _, m := range variants {
			clampMatrix(m, mt, limits.max(mt), logger)
		}
		switch attr.Name {
		case AttributeBandwidthForward:
			forward = variants
		case AttributeBandwidthBackward:
			backward = variants
		default:
			out[mt] = variants
		}
	}

	// the backward bandwidth overwrites the lower triangle of the
	// forward one; when both are stepped we take all the combinations
	switch {
	case forward != nil && backward != nil:
		for _, f := range forward {
			for _, b := range backward {
				out[MatrixBandwidth] = append(out[MatrixBandwidth], mergeBandwidth(f, b))
			}
		}
	case forward != nil:
		out[MatrixBandwidth] = forward
	case backward != nil:
		for _, b := range backward {
			out[MatrixBandwidth] = append(out[MatrixBandwidth], mergeBandwidth(NewMatrix(adj.Dim()), b))
		}
	}

	for _, mt := range AllMatrixTypes[1:] {
		if len(out[mt]) <= 0 {
			out[mt] = []Matrix{NewMatrix(adj.Dim())}
		}
	}
	return out, nil
}

// crossProduct combines the value variants into complete [MatrixSet]s. The
// loss variant changes slowest and the bandwidth variant changes fastest.
func crossProduct(base *MatrixSet, variants map[MatrixType][]Matrix) []*MatrixSet {
	var out []*MatrixSet
	for _, loss := range variants[MatrixLoss] {
		for _, latency := range variants[MatrixLatency] {
			for _, jitter := range variants[MatrixJitter] {
				for _, bandwidth := range variants[MatrixBandwidth] {
					out = append(out, &MatrixSet{
						Name:      base.Name,
						Family:    base.Family,
						Adjacency: base.Adjacency.Clone(),
						Bandwidth: bandwidth.Clone(),
						Loss:      loss.Clone(),
						Latency:   latency.Clone(),
						Jitter:    jitter.Clone(),
					})
				}
			}
		}
	}
	if len(out) > 1 {
		for idx, ms := range out {
			ms.Name = fmt.Sprintf("%s#%d", base.Name, idx)
		}
	}
	return out
}
