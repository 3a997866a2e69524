package wav

import "encoding/binary"

// Resample converts mono 16-bit PCM between sample rates using linear
// interpolation. Output positions past the last input sample repeat it.
func Resample(pcm []byte, from, to uint32) []byte {
	if from == to || from == 0 || to == 0 {
		return pcm
	}

	in := make([]int16, len(pcm)/2)
	for i := range in {
		in[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	if len(in) == 0 {
		return []byte{}
	}

	ratio := float64(to) / float64(from)
	n := int(float64(len(in)) * ratio)
	out := make([]byte, n*2)

	for i := 0; i < n; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)

		var v int16
		if idx >= len(in)-1 {
			v = in[len(in)-1]
		} else {
			v = int16(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
