package audio

// MeanAbs returns the mean absolute sample amplitude, the energy measure used
// for speech/silence decisions.
func MeanAbs(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}

	var sum int64
	for _, s := range pcm {
		if s < 0 {
			sum -= int64(s)
		} else {
			sum += int64(s)
		}
	}
	return float64(sum) / float64(len(pcm))
}

// TrimTrailingSilence cuts the buffer just after the last sample whose absolute
// amplitude exceeds threshold. A buffer that is quiet throughout is returned
// unmodified so a genuine but soft utterance is never reduced to nothing.
func TrimTrailingSilence(pcm []int16, threshold float64) []int16 {
	idx := len(pcm) - 1
	for idx >= 0 && abs16(pcm[idx]) <= threshold {
		idx--
	}
	if idx < 0 {
		return pcm
	}
	return pcm[:idx+1]
}

func abs16(s int16) float64 {
	if s < 0 {
		return -float64(s)
	}
	return float64(s)
}
