package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectionFromDelta(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy int32
		want   byte
	}{
		{"south", 0, 1, 0},
		{"southwest", -1, 1, 1},
		{"west", -1, 0, 2},
		{"northwest", -1, -1, 3},
		{"north", 0, -1, 4},
		{"northeast", 1, -1, 5},
		{"east", 1, 0, 6},
		{"southeast", 1, 1, 7},
		{"zero delta faces south", 0, 0, 0},
		{"magnitude ignored", 37, -120, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DirectionFromDelta(tt.dx, tt.dy))
		})
	}
}

// Every possible delta yields a heading in 0..7, and the eight non-zero
// sign combinations each yield a different one.
func TestDirectionFromDeltaCoversAllHeadings(t *testing.T) {
	seen := make(map[byte]bool)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			h := DirectionFromDelta(dx, dy)
			require.Less(t, h, byte(8))
			if dx != 0 || dy != 0 {
				require.False(t, seen[h], "heading %d produced twice", h)
				seen[h] = true
			}
		}
	}
	require.Len(t, seen, 8)
}

// Stepping by the delta for a heading and deriving the heading back from
// that delta must agree.
func TestHeadingDeltaRoundTrip(t *testing.T) {
	for h := byte(0); h < 8; h++ {
		require.Equal(t, h, DirectionFromDelta(HeadingDX[h], HeadingDY[h]))
	}
}

func TestChebyshev(t *testing.T) {
	require.Equal(t, int32(0), Chebyshev(5, 5, 5, 5))
	require.Equal(t, int32(3), Chebyshev(0, 0, 3, 1))
	require.Equal(t, int32(7), Chebyshev(-3, 2, 4, -2))
}

func TestInRangeRequiresSameMap(t *testing.T) {
	a := Position{X: 10, Y: 10, MapID: 4}
	b := Position{X: 11, Y: 11, MapID: 4}
	require.True(t, InRange(a, b, 1))
	b.MapID = 5
	require.False(t, InRange(a, b, 1))
}

func TestGridAddMoveRemove(t *testing.T) {
	g := NewGrid(20)
	p := Position{X: 100, Y: 100, MapID: 0}
	g.Add(7, p)
	require.Contains(t, g.Nearby(p), int32(7))

	// Crossing a cell boundary keeps the object findable near its new
	// position and not near the old one.
	far := Position{X: 200, Y: 200, MapID: 0}
	g.Move(7, p, far)
	require.NotContains(t, g.Nearby(p), int32(7))
	require.Contains(t, g.Nearby(far), int32(7))

	g.Remove(7, far)
	require.Empty(t, g.Nearby(far))
}

func TestGridNegativeCoordinates(t *testing.T) {
	g := NewGrid(20)
	p := Position{X: -1, Y: -1, MapID: 0}
	q := Position{X: 1, Y: 1, MapID: 0}
	g.Add(1, p)
	// Adjacent tiles on either side of the origin land in adjacent cells,
	// so each must see the other in its 3x3 neighbourhood.
	require.Contains(t, g.Nearby(q), int32(1))
}

func TestGridCoversVisibilityRange(t *testing.T) {
	g := NewGrid(20)
	center := Position{X: 50, Y: 50, MapID: 0}
	edge := Position{X: 70, Y: 30, MapID: 0}
	g.Add(2, edge)
	require.True(t, InRange(center, edge, 20))
	require.Contains(t, g.Nearby(center), int32(2))
}
