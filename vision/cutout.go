package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const maxMatteSide = 1200

var (
	ErrQueueFull   = errors.New("cutout queue is full, retry later")
	ErrEmptyLayer  = errors.New("cutout layer is empty")
	ErrDecodeLayer = errors.New("cutout layer cannot be converted")
)

// CutoutService 为没有透明通道的家具图生成 alpha
type CutoutService struct {
	iterations   int
	borderSize   int
	semaphore    chan struct{}
	queueTimeout time.Duration
	complexity   *ComplexityAnalyzer
	saliency     *SaliencyDetector
	masks        *MaskProcessor
}

func NewCutoutService(cfg *config.CutoutConfig) *CutoutService {
	queueTimeout := time.Duration(cfg.QueueTimeout) * time.Second
	if queueTimeout <= 0 {
		queueTimeout = 30 * time.Second
	}
	return &CutoutService{
		iterations:   cfg.Iterations,
		borderSize:   cfg.BorderSize,
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: queueTimeout,
		complexity:   NewComplexityAnalyzer(),
		saliency:     NewSaliencyDetector(),
		masks:        NewMaskProcessor(),
	}
}

// Matte 已含透明像素的图直接返回副本，否则用 GrabCut 抠出最大前景
func (s *CutoutService) Matte(ctx context.Context, layer image.Image) (*image.NRGBA, error) {
	if layer == nil || layer.Bounds().Empty() {
		return nil, ErrEmptyLayer
	}
	if HasTransparency(layer) {
		return imaging.Clone(layer), nil
	}

	// 并发控制
	qctx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()
	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-qctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrQueueFull
	}

	start := time.Now()
	src, err := gocv.ImageToMatRGB(layer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeLayer, err)
	}
	defer src.Close()

	width, height := src.Cols(), src.Rows()
	scaled, scale := smartResize(&src, maxMatteSide)
	defer scaled.Close()

	info := s.complexity.Analyze(&scaled)
	fg := s.grabCut(&scaled, info)
	defer fg.Close()

	if scale != 1.0 {
		resized := gocv.NewMat()
		gocv.Resize(fg, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		gocv.Threshold(resized, &resized, 127, 255, gocv.ThresholdBinary)
		fg.Close()
		fg = resized
	}

	largest := s.masks.KeepLargest(&fg)
	defer largest.Close()

	coverage := s.masks.Coverage(&largest)
	utils.Logger.Info("cutout matted",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("complexity", info.Level),
		zap.Float64("coverage", coverage),
		zap.Duration("duration", time.Since(start)))

	out := imaging.Clone(layer)
	if coverage == 0 {
		utils.Logger.Warn("cutout found no foreground, keeping layer opaque")
		return out, nil
	}
	applyAlpha(out, largest.ToBytes())
	return out, nil
}

// grabCut 按复杂度选择初始化方式，返回 0/255 前景掩码
func (s *CutoutService) grabCut(img *gocv.Mat, info ComplexityInfo) gocv.Mat {
	w, h := img.Cols(), img.Rows()

	border := s.borderSize
	if border < 10 {
		border = int(float64(w) * 0.05)
	}
	border = min(border, (min(w, h)-1)/2)
	rect := image.Rect(border, border, w-border, h-border)

	var mask gocv.Mat
	if info.Level == LevelSimple {
		mask = gocv.NewMat()
	} else {
		sal := s.saliency.Detect(img)
		mask = s.saliency.SeedMask(&sal, w, h)
		sal.Close()
	}
	defer mask.Close()

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	iterations := iterationsFor(info.Level, s.iterations)
	if mask.Empty() {
		gocv.GrabCut(*img, &mask, rect, &bgdModel, &fgdModel, iterations, gocv.GCInitWithRect)
	} else {
		gocv.GrabCut(*img, &mask, image.Rectangle{}, &bgdModel, &fgdModel, iterations, gocv.GCInitWithMask)
		gocv.GrabCut(*img, &mask, image.Rectangle{}, &bgdModel, &fgdModel, 2, gocv.GCInitWithMask)
	}

	fg := s.masks.ExtractForeground(&mask)
	defer fg.Close()

	kernel := 3
	if info.Level == LevelComplex {
		kernel = 5
	}
	cleaned := s.masks.Clean(&fg, kernel)
	if info.Level == LevelSimple {
		return cleaned
	}
	defer cleaned.Close()
	return s.masks.SmoothEdges(&cleaned)
}

func iterationsFor(level string, base int) int {
	switch level {
	case LevelSimple:
		return max(3, base-2)
	case LevelComplex:
		return base + 2
	default:
		return base
	}
}

// smartResize 长边超过 maxSize 时等比缩小
func smartResize(img *gocv.Mat, maxSize int) (gocv.Mat, float64) {
	width, height := img.Cols(), img.Rows()
	maxDim := max(width, height)
	if maxDim <= maxSize {
		return img.Clone(), 1.0
	}

	scale := float64(maxSize) / float64(maxDim)
	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: int(float64(width) * scale), Y: int(float64(height) * scale)}, 0, 0, gocv.InterpolationArea)
	return resized, scale
}

// HasTransparency 是否存在 alpha < 255 的像素
func HasTransparency(img image.Image) bool {
	if n, ok := img.(*image.NRGBA); ok {
		for i := 3; i < len(n.Pix); i += 4 {
			if n.Pix[i] < 0xff {
				return true
			}
		}
		return false
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// applyAlpha 用行优先的单通道掩码覆盖 alpha
func applyAlpha(dst *image.NRGBA, mask []byte) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	if len(mask) < w*h {
		return
	}
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			row[x*4+3] = mask[y*w+x]
		}
	}
}
