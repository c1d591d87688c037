package netlab

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatrixSetSummary(t *testing.T) {
	t.Run("statistics cover both directions of every link", func(t *testing.T) {
		forward := LinkShape{Bandwidth: 100, Loss: 1, Latency: 20, Jitter: 5}
		reverse := forward
		reverse.Bandwidth = 50
		summary, err := newShapedChain(3, forward, reverse).Summary()
		if err != nil {
			t.Fatal(err)
		}
		expect := &Summary{
			Nodes: 3,
			Links: 2,
			Attributes: []AttributeSummary{
				{Type: MatrixBandwidth, Min: 50, Mean: 75, Median: 75, Max: 100},
				{Type: MatrixLoss, Min: 1, Mean: 1, Median: 1, Max: 1},
				{Type: MatrixLatency, Min: 20, Mean: 20, Median: 20, Max: 20},
				{Type: MatrixJitter, Min: 5, Mean: 5, Median: 5, Max: 5},
			},
		}
		if diff := cmp.Diff(expect, summary); diff != "" {
			t.Fatal(diff)
		}
		if !strings.HasPrefix(summary.String(), "3 nodes, 2 links; bandwidth min/mean/median/max 50/75/75/100") {
			t.Fatal("unexpected string", summary.String())
		}
	})

	t.Run("sets without links have zero statistics", func(t *testing.T) {
		summary, err := newTestSet(Matrix{{0}}).Summary()
		if err != nil {
			t.Fatal(err)
		}
		if summary.Links != 0 || len(summary.Attributes) != 4 {
			t.Fatal("unexpected summary", summary)
		}
		if summary.Attributes[0] != (AttributeSummary{Type: MatrixBandwidth}) {
			t.Fatal("expected zero statistics", summary.Attributes[0])
		}
	})

	t.Run("invalid sets", func(t *testing.T) {
		if _, err := (&MatrixSet{}).Summary(); !errors.Is(err, ErrTopologyIntegrity) {
			t.Fatal("unexpected error", err)
		}
	})
}
