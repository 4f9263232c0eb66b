package segment

// Reduce merges adjacent groups until at most limit remain.
//
// Each pass merges the adjacent pair with the smallest start-time gap, the
// first such pair winning ties; the later group is folded into the earlier
// one, which keeps its start. Groups are never split and never reduced below
// one. A limit below 1 is treated as 1. The input slice is not modified.
func Reduce(groups []Group, limit int) []Group {
	if limit < 1 {
		limit = 1
	}

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = Group{
			Start:    g.Start,
			Texts:    append([]string(nil), g.Texts...),
			Segments: append(g.Segments[:0:0], g.Segments...),
		}
	}

	for len(out) > limit && len(out) > 1 {
		best := 0
		bestGap := out[1].Start - out[0].Start
		for i := 1; i < len(out)-1; i++ {
			if gap := out[i+1].Start - out[i].Start; gap < bestGap {
				best, bestGap = i, gap
			}
		}

		out[best].Texts = append(out[best].Texts, out[best+1].Texts...)
		out[best].Segments = append(out[best].Segments, out[best+1].Segments...)
		out = append(out[:best+1], out[best+2:]...)
	}

	return out
}
