package analyzer

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// estimateOffsetMs measures the delay between two equal-rate sample
// streams via normalized FFT cross-correlation. The returned delay is
// lag/sampleRate in milliseconds, where lag is the peak of
// corr(k) = Σ primary[i+k]·secondary[i].
func estimateOffsetMs(primary, secondary []float64, sampleRate int) float64 {
	p := normalize(primary)
	s := normalize(secondary)
	lag := crossCorrelatePeak(p, s)
	return float64(lag) / float64(sampleRate) * 1000.0
}

// normalize returns a zero-mean, unit-variance copy. Near-silent input
// is left at zero mean only, to avoid amplifying noise.
func normalize(samples []float64) []float64 {
	n := len(samples)
	ret := make([]float64, n)
	if n == 0 {
		return ret
	}

	var mean float64
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	var variance float64
	for i, v := range samples {
		centered := v - mean
		ret[i] = centered
		variance += centered * centered
	}
	std := math.Sqrt(variance / float64(n))
	if std > 1e-8 {
		for i := range ret {
			ret[i] /= std
		}
	}
	return ret
}

// crossCorrelatePeak returns the lag with the strongest correlation,
// in the range [-(len(secondary)-1), len(primary)-1].
func crossCorrelatePeak(primary, secondary []float64) int {
	if len(primary) == 0 || len(secondary) == 0 {
		return 0
	}

	n := nextPow2(len(primary) + len(secondary) - 1)
	fft := fourier.NewFFT(n)

	pCoeff := fft.Coefficients(nil, pad(primary, n))
	sCoeff := fft.Coefficients(nil, pad(secondary, n))

	prod := make([]complex128, len(pCoeff))
	for i := range pCoeff {
		prod[i] = pCoeff[i] * cmplx.Conj(sCoeff[i])
	}
	corr := fft.Sequence(nil, prod)

	best := math.Inf(-1)
	bestLag := 0
	for lag := -(len(secondary) - 1); lag < len(primary); lag++ {
		idx := lag
		if idx < 0 {
			idx += n
		}
		if corr[idx] > best {
			best = corr[idx]
			bestLag = lag
		}
	}
	return bestLag
}

func pad(samples []float64, n int) []float64 {
	ret := make([]float64, n)
	copy(ret, samples)
	return ret
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
