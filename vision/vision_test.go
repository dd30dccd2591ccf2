package vision

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedValues(t *testing.T) {
	w, h := 6, 5
	sal := make([]byte, w*h)
	sal[2*w+2] = 255
	sal[2*w+3] = 100

	seeds := seedValues(sal, w, h, 1)
	assert.Equal(t, gcBgd, seeds[0])
	assert.Equal(t, gcBgd, seeds[4*w+5])
	assert.Equal(t, gcPRFgd, seeds[2*w+2])
	assert.Equal(t, gcPRBgd, seeds[2*w+3])
	assert.Equal(t, gcPRBgd, seeds[1*w+1])
}

func TestColumnProfile(t *testing.T) {
	w, h := 4, 4
	sal := make([]byte, w*h)
	for y := 0; y < h; y++ {
		sal[y*w+1] = 255
	}
	sal[3*w+2] = 255

	p := columnProfile(sal, w, 2, 4)
	assert.Equal(t, []float64{0, 1, 0.5, 0}, p)

	assert.Equal(t, []float64{0, 0, 0, 0}, columnProfile(sal, w, 3, 3))
	assert.Equal(t, []float64{0, 0, 0, 0}, columnProfile(sal[:4], w, 0, 4))
}

func TestIterationsFor(t *testing.T) {
	assert.Equal(t, 3, iterationsFor(LevelSimple, 5))
	assert.Equal(t, 6, iterationsFor(LevelSimple, 8))
	assert.Equal(t, 5, iterationsFor(LevelMedium, 5))
	assert.Equal(t, 7, iterationsFor(LevelComplex, 5))
}

func TestClassifyComplexity(t *testing.T) {
	assert.Equal(t, LevelSimple, classifyComplexity(0.01, 10))
	assert.Equal(t, LevelComplex, classifyComplexity(0.2, 10))
	assert.Equal(t, LevelComplex, classifyComplexity(0.01, 70))
	assert.Equal(t, LevelMedium, classifyComplexity(0.1, 40))
}

func TestHasTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	assert.False(t, HasTransparency(img))
	img.SetNRGBA(1, 1, color.NRGBA{A: 10})
	assert.True(t, HasTransparency(img))

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.False(t, HasTransparency(gray))
}

func TestApplyAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	applyAlpha(img, []byte{0, 255, 128, 7})
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(128), img.NRGBAAt(0, 1).A)
	assert.Equal(t, uint8(7), img.NRGBAAt(1, 1).A)
}

func TestMattePassesThroughTransparentLayers(t *testing.T) {
	svc := NewCutoutService(&config.CutoutConfig{Iterations: 5, BorderSize: 10, MaxConcurrent: 1, QueueTimeout: 1})
	layer := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	layer.SetNRGBA(2, 2, color.NRGBA{R: 200, A: 255})

	out, err := svc.Matte(context.Background(), layer)
	require.NoError(t, err)
	assert.Equal(t, layer.Pix, out.Pix)

	_, err = svc.Matte(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyLayer)
}
