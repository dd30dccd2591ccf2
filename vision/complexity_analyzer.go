package vision

import (
	"gocv.io/x/gocv"
)

const (
	LevelSimple  = "simple"
	LevelMedium  = "medium"
	LevelComplex = "complex"
)

// ComplexityAnalyzer 评估商品图的背景复杂度，决定 GrabCut 的初始化方式和迭代次数
type ComplexityAnalyzer struct{}

type ComplexityInfo struct {
	Level         string
	EdgeDensity   float64
	ColorVariance float64
}

func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{}
}

func (ca *ComplexityAnalyzer) Analyze(img *gocv.Mat) ComplexityInfo {
	edgeDensity := ca.edgeDensity(img)
	colorVariance := ca.colorVariance(img)

	return ComplexityInfo{
		Level:         classifyComplexity(edgeDensity, colorVariance),
		EdgeDensity:   edgeDensity,
		ColorVariance: colorVariance,
	}
}

func classifyComplexity(edgeDensity, colorVariance float64) string {
	switch {
	case edgeDensity < 0.05 && colorVariance < 30:
		return LevelSimple
	case edgeDensity > 0.15 || colorVariance > 60:
		return LevelComplex
	default:
		return LevelMedium
	}
}

// edgeDensity Canny 边缘像素占比
func (ca *ComplexityAnalyzer) edgeDensity(img *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	return float64(gocv.CountNonZero(edges)) / float64(img.Rows()*img.Cols())
}

// colorVariance Lab 空间三通道标准差均值
func (ca *ComplexityAnalyzer) colorVariance(img *gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*img, &lab, gocv.ColorBGRToLab)

	mean := gocv.NewMat()
	stddev := gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lab, &mean, &stddev)

	variance := 0.0
	for i := 0; i < stddev.Rows(); i++ {
		variance += stddev.GetDoubleAt(i, 0)
	}
	return variance / float64(stddev.Rows())
}
