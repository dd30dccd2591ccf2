package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MaskProcessor 处理 GrabCut 输出的抠图掩码
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// ExtractForeground 取确定前景和可能前景
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	fg := gocv.NewMat()
	defer fg.Close()
	one := gocv.NewMatFromScalar(gocv.Scalar{Val1: float64(gcFgd)}, gocv.MatTypeCV8U)
	defer one.Close()
	gocv.Compare(*mask, one, &fg, gocv.CompareEQ)

	probable := gocv.NewMat()
	defer probable.Close()
	three := gocv.NewMatFromScalar(gocv.Scalar{Val1: float64(gcPRFgd)}, gocv.MatTypeCV8U)
	defer three.Close()
	gocv.Compare(*mask, three, &probable, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fg, probable, &combined)
	return combined
}

// Clean 先开后闭，去掉毛刺并补小孔
func (mp *MaskProcessor) Clean(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	return closed
}

// SmoothEdges 轻微膨胀后模糊再二值化，避免家具边缘锯齿
func (mp *MaskProcessor) SmoothEdges(mask *gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 2, Y: 2})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*mask, &dilated, kernel)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(dilated, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)

	out := gocv.NewMat()
	gocv.Threshold(blurred, &out, 127, 255, gocv.ThresholdBinary)
	return out
}

// KeepLargest 只保留面积最大的连通区域，返回新的 Mat
func (mp *MaskProcessor) KeepLargest(mask *gocv.Mat) gocv.Mat {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return mask.Clone()
	}

	maxArea := 0.0
	maxIndex := 0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > maxArea {
			maxArea = area
			maxIndex = i
		}
	}

	out := gocv.NewMatWithSizeFromScalar(gocv.Scalar{}, mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	gocv.DrawContours(&out, contours, maxIndex, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return out
}

// Coverage 前景像素占比
func (mp *MaskProcessor) Coverage(mask *gocv.Mat) float64 {
	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(*mask)) / float64(total)
}
