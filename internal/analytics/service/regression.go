package service

// olsFit computes the ordinary least-squares line y = slope*x +
// intercept over y values indexed x = 0..n-1. A single point yields a
// flat line at that value; an empty series yields zeroes.
func olsFit(ys []int64) (slope, intercept float64) {
	n := float64(len(ys))
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, float64(ys[0])
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		fy := float64(y)
		sumX += x
		sumY += fy
		sumXY += x * fy
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
