package spatial

// Position is a tile coordinate on a specific map, plus the facing the
// object last reported. Heading does not participate in distance checks.
type Position struct {
	X       int32
	Y       int32
	MapID   int16
	Heading byte
}

// Heading deltas, indexed by heading 0..7 starting at south and going
// clockwise: S, SW, W, NW, N, NE, E, SE. Screen coordinates, so south
// is +Y and north is -Y.
var (
	HeadingDX = [8]int32{0, -1, -1, -1, 0, 1, 1, 1}
	HeadingDY = [8]int32{1, 1, 0, -1, -1, -1, 0, 1}
)

// directionTable maps (sign(dx)+1)*3 + (sign(dy)+1) to a heading.
var directionTable = [9]byte{3, 2, 1, 4, 0, 0, 5, 6, 7}

func sign(v int32) int32 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// DirectionFromDelta returns the heading an object faces when stepping by
// (dx, dy). Only the signs matter. A zero delta faces south.
func DirectionFromDelta(dx, dy int32) byte {
	return directionTable[(sign(dx)+1)*3+(sign(dy)+1)]
}

// Chebyshev returns the chessboard distance between two points.
func Chebyshev(ax, ay, bx, by int32) int32 {
	dx := ax - bx
	if dx < 0 {
		dx = -dx
	}
	dy := ay - by
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// InRange reports whether b is on the same map as a and within Chebyshev
// distance r.
func InRange(a, b Position, r int32) bool {
	return a.MapID == b.MapID && Chebyshev(a.X, a.Y, b.X, b.Y) <= r
}
