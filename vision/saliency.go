package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// GrabCut 掩码标签
const (
	gcBgd   byte = 0
	gcFgd   byte = 1
	gcPRBgd byte = 2
	gcPRFgd byte = 3
)

// SaliencyDetector 基于梯度的显著性检测
type SaliencyDetector struct{}

func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{}
}

// Detect 返回 Otsu 二值化后的显著性图 (CV8U, 0/255)
func (sd *SaliencyDetector) Detect(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absX := gocv.NewMat()
	absY := gocv.NewMat()
	defer absX.Close()
	defer absY.Close()
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, &gradient)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)

	saliency := gocv.NewMat()
	gocv.Threshold(blurred, &saliency, 0, 255, gocv.ThresholdOtsu)
	return saliency
}

// SeedMask 生成 GrabCut 初始掩码：边框为背景，显著区域为可能前景，其余为可能背景
func (sd *SaliencyDetector) SeedMask(saliency *gocv.Mat, width, height int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 11, Y: 11})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	sal := dilated.ToBytes()
	seeds := seedValues(sal, width, height, int(float64(width)*0.03))

	mask, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8U, seeds)
	if err != nil {
		return gocv.NewMat()
	}
	return mask
}

// seedValues 按行优先顺序计算每个像素的 GrabCut 标签
func seedValues(saliency []byte, width, height, border int) []byte {
	out := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			switch {
			case x < border || x >= width-border || y < border || y >= height-border:
				out[i] = gcBgd
			case i < len(saliency) && saliency[i] > 128:
				out[i] = gcPRFgd
			default:
				out[i] = gcPRBgd
			}
		}
	}
	return out
}
