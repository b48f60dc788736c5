package pgm

import (
	"math"

	"github.com/hupe1980/strata/model"
)

// Segment is one linear piece covering keys[Start : Start+Count].
type Segment struct {
	Start     int
	Count     int
	Slope     float64
	Intercept float64
}

// Predict returns the clamped, rounded position of a key at distance x from
// the first key of a segment with count items.
func Predict(slope, intercept, x float64, count int) int {
	if count <= 0 {
		return 0
	}
	// The explicit conversion prevents fused multiply-add, keeping predictions
	// identical on every platform that reads the file.
	p := math.Round(float64(slope*x) + intercept)
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p >= float64(count):
		return count - 1
	default:
		return int(p)
	}
}

// Build partitions keys into the fewest greedy segments that each satisfy the
// epsilon bound. keys must be strictly ascending.
func Build[K model.Key](keys []K, epsilon int) []Segment {
	var segs []Segment
	for start := 0; start < len(keys); {
		seg := fitVerified(keys, start, epsilon)
		segs = append(segs, seg)
		start += seg.Count
	}
	return segs
}

// fitVerified grows a segment from start with the cone fit and shrinks it until
// the rounded predictions of every covered key are within epsilon.
func fitVerified[K model.Key](keys []K, start, epsilon int) Segment {
	end := len(keys)
	for {
		seg := fitCone(keys[start:end], epsilon)
		seg.Start = start
		bad := verify(keys[start:start+seg.Count], seg, epsilon)
		switch {
		case bad < 0:
			return seg
		case bad == 0:
			return Segment{Start: start, Count: 1}
		}
		end = start + bad
	}
}

// fitCone returns the longest prefix of keys whose points fit a line through a
// shrinking slope cone anchored at the first point.
func fitCone[K model.Key](keys []K, epsilon int) Segment {
	if len(keys) == 0 {
		return Segment{}
	}
	eps := float64(epsilon)
	lo, hi := math.Inf(-1), math.Inf(1)
	n := 1
	for ; n < len(keys); n++ {
		x := model.Distance(keys[0], keys[n])
		y := float64(n)
		if x == 0 || math.IsInf(x, 0) {
			if y > eps {
				break
			}
			continue
		}
		nlo := math.Max(lo, (y-eps)/x)
		nhi := math.Min(hi, (y+eps)/x)
		if nlo > nhi {
			break
		}
		lo, hi = nlo, nhi
	}

	var slope float64
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		slope = 0
	case math.IsInf(lo, -1):
		slope = hi
	case math.IsInf(hi, 1):
		slope = lo
	default:
		slope = lo + (hi-lo)/2
	}
	// Predictions must be monotone in the key. A negative midpoint implies
	// lo < 0 <= hi, so zero stays inside the cone.
	slope = math.Max(slope, 0)
	return Segment{Count: n, Slope: slope, Intercept: center(keys[:n], slope)}
}

// center picks the intercept halfway between the smallest and largest residual,
// which minimizes the worst-case error for a fixed slope.
func center[K model.Key](keys []K, slope float64) float64 {
	minR, maxR := 0.0, 0.0
	for i := 1; i < len(keys); i++ {
		r := float64(i) - slope*model.Distance(keys[0], keys[i])
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		minR = math.Min(minR, r)
		maxR = math.Max(maxR, r)
	}
	return minR + (maxR-minR)/2
}

// verify returns the position of the first key whose prediction misses by more
// than epsilon, or -1 if the segment is sound.
func verify[K model.Key](keys []K, seg Segment, epsilon int) int {
	for i := range keys {
		p := Predict(seg.Slope, seg.Intercept, model.Distance(keys[0], keys[i]), seg.Count)
		if absInt(p-i) > epsilon {
			return i
		}
	}
	return -1
}

// Fit fits a single segment over all keys regardless of error and reports the
// maximum error observed. It is used for flat root nodes, where splitting is not
// an option.
func Fit[K model.Key](keys []K) (Segment, int) {
	seg := Segment{Count: len(keys)}
	if len(keys) > 1 {
		seg.Slope = leastSquares(keys)
		seg.Intercept = center(keys, seg.Slope)
	}
	return seg, MaxError(keys, seg)
}

// MaxError returns the largest |predicted - true| position error of seg over keys.
func MaxError[K model.Key](keys []K, seg Segment) int {
	worst := 0
	for i := range keys {
		p := Predict(seg.Slope, seg.Intercept, model.Distance(keys[0], keys[i]), seg.Count)
		worst = max(worst, absInt(p-i))
	}
	return worst
}

func leastSquares[K model.Key](keys []K) float64 {
	var n, sumX, sumY, sumXY, sumXX float64
	for i, k := range keys {
		x := model.Distance(keys[0], k)
		if math.IsInf(x, 0) {
			continue
		}
		y := float64(i)
		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denominator := n*sumXX - sumX*sumX
	if denominator == 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0) {
		return 0
	}
	return math.Max((n*sumXY-sumX*sumY)/denominator, 0)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
