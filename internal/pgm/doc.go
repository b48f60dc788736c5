// Package pgm fits piecewise-linear, error-bounded position models over sorted keys.
//
// A segment maps a key to its position within the segment:
//
//	pos(key) = round(Slope * (key - firstKey) + Intercept), clamped to [0, Count)
//
// and guarantees |pos(key) - truePos| <= epsilon for every key it was fit on.
// Keys are measured relative to the first key of the segment so that large key
// values do not eat into float64 precision.
package pgm
