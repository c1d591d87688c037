package netlab

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestShortestPath(t *testing.T) {
	star, err := FamilyStar.Adjacency(5)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("leaves of a star go through the center", func(t *testing.T) {
		if diff := cmp.Diff([]int{3, 0, 4}, ShortestPath(star, 3, 4)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a node reaches itself with a single-element path", func(t *testing.T) {
		if diff := cmp.Diff([]int{2}, ShortestPath(star, 2, 2)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ties are broken using the lowest index", func(t *testing.T) {
		// a square: 0-1, 0-2, 1-3, 2-3
		square := Matrix{
			{0, 1, 1, 0},
			{1, 0, 0, 1},
			{1, 0, 0, 1},
			{0, 1, 1, 0},
		}
		if diff := cmp.Diff([]int{0, 1, 3}, ShortestPath(square, 0, 3)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("links stored in one direction only are traversed", func(t *testing.T) {
		adj := Matrix{
			{0, 1, 0},
			{0, 0, 0},
			{0, 1, 0},
		}
		if diff := cmp.Diff([]int{0, 1, 2}, ShortestPath(adj, 0, 2)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("unreachable destinations", func(t *testing.T) {
		adj := Matrix{
			{0, 1, 0},
			{1, 0, 0},
			{0, 0, 0},
		}
		if path := ShortestPath(adj, 0, 2); path != nil {
			t.Fatal("expected nil, got", path)
		}
		if path := ShortestPath(adj, 0, 7); path != nil {
			t.Fatal("expected nil, got", path)
		}
	})
}
