package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/alihoumani6/instastage-backend/staging"
	"gocv.io/x/gocv"
)

// ObstacleDetector 在地面线上方的条带内寻找空位，用于主家具水平定位
type ObstacleDetector struct {
	saliency *SaliencyDetector
	// BandRatio 条带高度占图像高度的比例
	BandRatio float64
}

func NewObstacleDetector() *ObstacleDetector {
	return &ObstacleDetector{saliency: NewSaliencyDetector(), BandRatio: 0.35}
}

// MainCenter 返回宽为 itemWidth 的主家具的推荐中心 x
func (d *ObstacleDetector) MainCenter(base image.Image, floorY, itemWidth int) (int, error) {
	if base == nil || base.Bounds().Empty() {
		return 0, errors.New("obstacle detection on empty image")
	}
	mat, err := gocv.ImageToMatRGB(base)
	if err != nil {
		return 0, fmt.Errorf("convert base image: %w", err)
	}
	defer mat.Close()

	sal := d.saliency.Detect(&mat)
	defer sal.Close()

	w, h := sal.Cols(), sal.Rows()
	bottom := min(max(floorY, 1), h)
	top := max(0, bottom-int(float64(h)*d.BandRatio))
	profile := columnProfile(sal.ToBytes(), w, top, bottom)
	return staging.ChooseCenter(profile, itemWidth), nil
}

// columnProfile 每列在 [top, bottom) 行内的显著像素占比
func columnProfile(saliency []byte, width, top, bottom int) []float64 {
	profile := make([]float64, width)
	rows := bottom - top
	if rows <= 0 || width <= 0 || len(saliency) < bottom*width {
		return profile
	}
	for y := top; y < bottom; y++ {
		row := saliency[y*width : (y+1)*width]
		for x, v := range row {
			if v > 0 {
				profile[x]++
			}
		}
	}
	for x := range profile {
		profile[x] /= float64(rows)
	}
	return profile
}
