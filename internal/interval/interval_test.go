package interval

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) int { return h*60 + m }

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"back to back", New(hm(9, 0), hm(10, 0)), New(hm(10, 0), hm(11, 0)), false},
		{"back to back reversed", New(hm(10, 0), hm(11, 0)), New(hm(9, 0), hm(10, 0)), false},
		{"one minute overlap", New(hm(9, 0), hm(10, 0)), New(hm(9, 59), hm(10, 30)), true},
		{"containment", New(hm(9, 0), hm(17, 0)), New(hm(12, 0), hm(13, 0)), true},
		{"identical", New(hm(9, 0), hm(10, 0)), New(hm(9, 0), hm(10, 0)), true},
		{"disjoint", New(hm(9, 0), hm(10, 0)), New(hm(11, 0), hm(12, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
		})
	}
}

func TestBufferAndClip(t *testing.T) {
	got := Buffer(New(hm(13, 0), hm(14, 0)), 30, 30)
	assert.Equal(t, New(hm(12, 30), hm(14, 30)), got)

	early := Buffer(New(10, 40), 30, 30)
	assert.Equal(t, New(-20, 70), early)

	clipped, ok := Clip(early, 0, 1440)
	require.True(t, ok)
	assert.Equal(t, New(0, 70), clipped)

	_, ok = Clip(New(-90, -30), 0, 1440)
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	in := []Interval{New(50, 60), New(0, 10), New(10, 20), New(15, 30), New(40, 40)}
	got := Merge(in)

	assert.Equal(t, []Interval{New(0, 30), New(50, 60)}, got)
	assert.Equal(t, New(50, 60), in[0], "input must not be reordered")
	assert.Nil(t, Merge(nil))
}

func TestSubtract(t *testing.T) {
	day := []Interval{New(hm(9, 0), hm(17, 0))}

	tests := []struct {
		name string
		base []Interval
		cuts []Interval
		want []Interval
	}{
		{
			name: "no cuts",
			base: day,
			want: day,
		},
		{
			name: "buffered appointment in the middle",
			base: day,
			cuts: []Interval{Buffer(New(hm(13, 0), hm(14, 0)), 30, 30)},
			want: []Interval{New(hm(9, 0), hm(12, 30)), New(hm(14, 30), hm(17, 0))},
		},
		{
			name: "cut covers everything",
			base: day,
			cuts: []Interval{New(hm(8, 0), hm(18, 0))},
			want: []Interval{},
		},
		{
			name: "cut touching the edges leaves base intact",
			base: day,
			cuts: []Interval{New(hm(8, 0), hm(9, 0)), New(hm(17, 0), hm(18, 0))},
			want: day,
		},
		{
			name: "one cut spans two bases",
			base: []Interval{New(hm(9, 0), hm(12, 0)), New(hm(13, 0), hm(17, 0))},
			cuts: []Interval{New(hm(11, 0), hm(14, 0))},
			want: []Interval{New(hm(9, 0), hm(11, 0)), New(hm(14, 0), hm(17, 0))},
		},
		{
			name: "unsorted overlapping cuts",
			base: day,
			cuts: []Interval{New(hm(15, 0), hm(16, 0)), New(hm(10, 0), hm(11, 0)), New(hm(10, 30), hm(11, 30))},
			want: []Interval{New(hm(9, 0), hm(10, 0)), New(hm(11, 30), hm(15, 0)), New(hm(16, 0), hm(17, 0))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtract(tt.base, tt.cuts)
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, len(tt.want), len(got))
			for i := range got {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

// TestSubtract_Totality checks point by point against a brute-force model:
// every point in base and in no cut is covered by exactly one result, and no
// result overlaps a cut.
func TestSubtract_Totality(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	const span = 300

	randomSet := func(n int) []Interval {
		out := make([]Interval, n)
		for i := range out {
			a, b := rng.IntN(span), rng.IntN(span)
			out[i] = New(min(a, b), max(a, b)+rng.IntN(3))
		}
		return out
	}

	for round := 0; round < 500; round++ {
		base := randomSet(1 + rng.IntN(4))
		cuts := randomSet(rng.IntN(6))
		got := Subtract(base, cuts)

		for i, iv := range got {
			require.False(t, iv.Empty(), "round %d: empty result %v", round, iv)
			require.False(t, OverlapsAny(iv, cuts), "round %d: %v overlaps a cut", round, iv)
			if i > 0 {
				require.Less(t, got[i-1].End, iv.Start+1, "round %d: results out of order", round)
			}
		}

		for p := -5; p < span+5; p++ {
			point := New(p, p+1)
			want := OverlapsAny(point, base) && !OverlapsAny(point, cuts)
			covered := 0
			for _, iv := range got {
				if Overlaps(point, iv) {
					covered++
				}
			}
			if want {
				require.Equal(t, 1, covered, "round %d point %d", round, p)
			} else {
				require.Zero(t, covered, "round %d point %d", round, p)
			}
		}
	}
}
