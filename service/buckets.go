package service

// DefaultBuckets generates the default histogram bucket edges: positive
// edges growing by 1.1x from 1e-12 up to 1e20, the same sequence mirrored
// negative, and a single zero edge between them. The result is ascending
// and deterministic.
func DefaultBuckets() []float64 {
	var pos []float64
	for v := 1e-12; v < 1e20; v *= 1.1 {
		pos = append(pos, v)
	}
	out := make([]float64, 0, 2*len(pos)+1)
	for i := len(pos) - 1; i >= 0; i-- {
		out = append(out, -pos[i])
	}
	out = append(out, 0)
	return append(out, pos...)
}
