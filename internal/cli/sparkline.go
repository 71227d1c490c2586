package cli

// sparkBlocks are the Unicode bars from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// renderSparkline draws values as a row of block characters scaled between
// their minimum and maximum.
func renderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := make([]rune, len(values))
	if hi == lo {
		for i := range out {
			out[i] = sparkBlocks[len(sparkBlocks)/2]
		}
		return string(out)
	}

	for i, v := range values {
		idx := int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		out[i] = sparkBlocks[min(idx, len(sparkBlocks)-1)]
	}
	return string(out)
}
