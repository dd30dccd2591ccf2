package staging

import (
	"math"
)

// ChooseCenter 在逐列占用率曲线上找到宽度为 itemWidth、占用总和最小的窗口，返回其中心 x。
// 占用相同的窗口中取最接近画布中心的一个。
func ChooseCenter(profile []float64, itemWidth int) int {
	n := len(profile)
	center := n / 2
	if n == 0 || itemWidth <= 0 || itemWidth >= n {
		return center
	}

	prefix := make([]float64, n+1)
	for i, v := range profile {
		prefix[i+1] = prefix[i] + v
	}

	const eps = 1e-9
	bestCost := math.Inf(1)
	best := center
	for start := 0; start+itemWidth <= n; start++ {
		cost := prefix[start+itemWidth] - prefix[start]
		c := start + itemWidth/2
		switch {
		case cost < bestCost-eps:
			bestCost, best = cost, c
		case math.Abs(cost-bestCost) <= eps && absInt(c-center) < absInt(best-center):
			best = c
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
