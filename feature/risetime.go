package feature

// RiseTimeParams configures the rise-time (10-90%) filter (spec.md §4.5
// "Rise-time filter").
type RiseTimeParams struct {
	ScaleNS          float64
	Binning          int
	LeftWindow       int
	RightWindow      int
}

// Bin maps (t90-t10) into [0, Binning) over [0, ScaleNS].
func (p RiseTimeParams) Bin(t10, t90 float64) int {
	riseTime := t90 - t10
	if p.ScaleNS == 0 {
		return -1
	}
	bin := int((riseTime / p.ScaleNS) * float64(p.Binning))
	return bin
}

// Accept reports whether bin falls in [LeftWindow, RightWindow] and is a
// valid histogram index.
func (p RiseTimeParams) Accept(bin int) bool {
	if bin < 0 || bin >= p.Binning {
		return false
	}
	return bin >= p.LeftWindow && bin <= p.RightWindow
}
