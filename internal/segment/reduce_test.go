package segment

import (
	"math/rand"
	"testing"

	"github.com/jackzampolin/chaptermark/internal/transcript"
)

func groupsAt(starts ...float64) []Group {
	groups := make([]Group, len(starts))
	for i, s := range starts {
		seg := transcript.Segment{Text: "t", Start: s, End: s + 0.5}
		groups[i] = newGroup(seg)
	}
	return groups
}

func TestReduce_NoOpWithinLimit(t *testing.T) {
	in := groupsAt(0, 8, 13)
	out := Reduce(in, 5)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
}

func TestReduce_MergesSmallestGap(t *testing.T) {
	// Gaps: 10, 2, 30. The pair starting at 10 merges first.
	out := Reduce(groupsAt(0, 10, 12, 42), 3)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[1].Start != 10 || len(out[1].Segments) != 2 {
		t.Fatalf("out[1] = %+v, want merged group starting at 10", out[1])
	}
	if out[1].Segments[1].Start != 12 {
		t.Errorf("merged segments out of order: %+v", out[1].Segments)
	}
}

func TestReduce_TieBreaksOnFirstPair(t *testing.T) {
	out := Reduce(groupsAt(0, 5, 10, 15), 3)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if len(out[0].Segments) != 2 || out[0].Start != 0 {
		t.Fatalf("out[0] = %+v, want first pair merged", out[0])
	}
}

func TestReduce_FloorOfOne(t *testing.T) {
	for _, limit := range []int{1, 0, -3} {
		out := Reduce(groupsAt(0, 1, 2, 3), limit)
		if len(out) != 1 {
			t.Fatalf("Reduce(limit=%d) len = %d, want 1", limit, len(out))
		}
		if len(out[0].Segments) != 4 || out[0].Start != 0 {
			t.Errorf("Reduce(limit=%d) = %+v", limit, out[0])
		}
	}
}

func TestReduce_Empty(t *testing.T) {
	if out := Reduce(nil, 3); len(out) != 0 {
		t.Fatalf("Reduce(nil) = %+v", out)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	in := groupsAt(0, 1, 2)
	_ = Reduce(in, 1)
	for i, g := range in {
		if len(g.Segments) != 1 || len(g.Texts) != 1 {
			t.Fatalf("input group %d mutated: %+v", i, g)
		}
	}
}

// TestReduce_Properties checks bound, order and start preservation on
// randomized group sequences.
func TestReduce_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 300; iter++ {
		n := 1 + rng.Intn(40)
		starts := make([]float64, n)
		clock := 0.0
		for i := range starts {
			starts[i] = clock
			clock += 1 + rng.Float64()*120
		}
		in := groupsAt(starts...)
		limit := 1 + rng.Intn(30)

		out := Reduce(in, limit)

		if len(out) > limit {
			t.Fatalf("iter %d: len = %d > limit %d", iter, len(out), limit)
		}
		if len(out) < 1 {
			t.Fatalf("iter %d: reduced below one group", iter)
		}
		if n <= limit && len(out) != n {
			t.Fatalf("iter %d: reduced %d groups under limit %d to %d", iter, n, limit, len(out))
		}

		var flat []transcript.Segment
		for i, g := range out {
			if g.Start != g.Segments[0].Start {
				t.Fatalf("iter %d: group %d start %v != first segment %v", iter, i, g.Start, g.Segments[0].Start)
			}
			if i > 0 && g.Start <= out[i-1].Start {
				t.Fatalf("iter %d: groups out of order at %d", iter, i)
			}
			flat = append(flat, g.Segments...)
		}
		if len(flat) != n {
			t.Fatalf("iter %d: %d segments after reduce, want %d", iter, len(flat), n)
		}
		for i := range flat {
			if flat[i].Start != starts[i] {
				t.Fatalf("iter %d: segment %d reordered", iter, i)
			}
		}
	}
}
