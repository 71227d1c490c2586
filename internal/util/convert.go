package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses a raw numeric cell.
// Returns nil for empty, unparseable, NaN, or infinite values.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseNonNegative parses a raw numeric cell that must be >= 0.
// Returns nil for anything ParseFloat rejects and for negative values.
func ParseNonNegative(s string) *float64 {
	f := ParseFloat(s)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

// ParseNonNegativeInt parses a raw integral cell that must be >= 0.
// Integral float spellings such as "12.0" are accepted; "12.5" is not.
func ParseNonNegativeInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if i < 0 {
			return nil
		}
		return &i
	}
	f := ParseNonNegative(s)
	if f == nil || *f != math.Trunc(*f) || *f > math.MaxInt64 {
		return nil
	}
	i := int64(*f)
	return &i
}

// ParseBool parses a lenient boolean flag.
// "true", "1", "yes", "t" and "y" (any case) are true; everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "t", "y", "1.0":
		return true
	default:
		return false
	}
}
