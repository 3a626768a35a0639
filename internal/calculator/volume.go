package calculator

// VolumeAvgDays is the trailing window of the volume baseline.
const VolumeAvgDays = 5

// VolumeRatio compares traded volume so far with an average day's volume at
// the same elapsed time. It returns 0 when currentVol or the baseline is not
// positive.
func VolumeRatio(currentVol float64, dailyVolumes []float64, elapsedMinutes float64) float64 {
	if currentVol <= 0 {
		return 0
	}
	avg := TailMean(dailyVolumes, VolumeAvgDays)
	if avg <= 0 {
		return 0
	}
	if elapsedMinutes < 1 {
		elapsedMinutes = 1
	}
	theoretical := avg * (elapsedMinutes / FullSessionMinutes)
	if theoretical <= 0 {
		return 0
	}
	return currentVol / theoretical
}
