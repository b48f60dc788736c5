package dataset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/strata/model"
)

// ParseKey parses the textual form of a key. Float keys must not be NaN.
func ParseKey[K model.Key](s string) (K, error) {
	var k K
	switch p := any(&k).(type) {
	case *int32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return k, err
		}
		*p = int32(v)
	case *int64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return k, err
		}
		*p = v
	case *uint32:
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return k, err
		}
		*p = uint32(v)
	case *uint64:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return k, err
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return k, err
		}
		if math.IsNaN(v) {
			return k, fmt.Errorf("parse %q: NaN key", s)
		}
		*p = v
	}
	return k, nil
}

// FormatKey returns the textual form of a key. ParseKey(FormatKey(k)) == k.
func FormatKey[K model.Key](k K) string {
	switch v := any(k).(type) {
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(k)
}
