// Package indicator provides rolling-window calculations over close-price
// series. Series use NaN for missing quotes; any window containing a NaN
// yields NaN, so comparisons against the result are false and no signal
// fires for that ticker until the gap scrolls out of the window.
package indicator

import "math"

// RollingMean returns a series aligned with values where index i holds the
// mean of the period values ending at i. The first period-1 entries are NaN.
func RollingMean(values []float64, period int) []float64 {
	result := make([]float64, len(values))

	for i := range result {
		result[i] = math.NaN()
	}

	if period <= 0 || len(values) < period {
		return result
	}

	for i := period - 1; i < len(values); i++ {
		sum := 0.0

		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}

		result[i] = sum / float64(period)
	}

	return result
}

// RollingStd returns the rolling sample standard deviation (divisor n-1)
// aligned with values. The first period-1 entries are NaN.
func RollingStd(values []float64, period int) []float64 {
	result := make([]float64, len(values))

	for i := range result {
		result[i] = math.NaN()
	}

	if period <= 1 || len(values) < period {
		return result
	}

	means := RollingMean(values, period)

	for i := period - 1; i < len(values); i++ {
		if math.IsNaN(means[i]) {
			continue
		}

		sumSq := 0.0

		for j := i - period + 1; j <= i; j++ {
			d := values[j] - means[i]
			sumSq += d * d
		}

		result[i] = math.Sqrt(sumSq / float64(period-1))
	}

	return result
}

// RateOfChange returns the fractional change between the value lookback
// positions from the end and the last value: (last - past) / past.
// Returns NaN when the series is too short or either endpoint is NaN or
// the past value is not positive.
func RateOfChange(values []float64, lookback int) float64 {
	if lookback <= 0 || len(values) < lookback {
		return math.NaN()
	}

	current := values[len(values)-1]
	past := values[len(values)-lookback]

	if math.IsNaN(current) || math.IsNaN(past) || past <= 0 {
		return math.NaN()
	}

	return (current - past) / past
}
