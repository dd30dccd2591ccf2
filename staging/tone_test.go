package staging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchClampsFactorToFloor(t *testing.T) {
	base := uniform(50, 50, color.NRGBA{R: 80, G: 80, B: 80, A: 255})
	cutout := uniform(20, 20, white)

	out, factor := NewToneMatcher().Match(base, cutout)
	assert.InDelta(t, 0.7, factor, 1e-9)
	assert.Equal(t, cutout.Bounds(), out.Bounds())
	assert.Less(t, out.NRGBAAt(5, 5).R, uint8(255))
}

func TestMatchTruncatesChannels(t *testing.T) {
	base := uniform(50, 50, color.NRGBA{R: 80, G: 80, B: 80, A: 255})
	cutout := uniform(20, 20, white)

	out, _ := NewToneMatcher().Match(base, cutout)
	assert.Equal(t, uint8(178), out.NRGBAAt(5, 5).R)
	assert.Equal(t, uint8(178), out.NRGBAAt(5, 5).B)
}

func TestMatchClampsFactorToCeiling(t *testing.T) {
	base := uniform(50, 50, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	cutout := uniform(20, 20, color.NRGBA{R: 20, G: 20, B: 20, A: 255})

	_, factor := NewToneMatcher().Match(base, cutout)
	assert.InDelta(t, 1.3, factor, 1e-9)
}

func TestBrightnessFactorBounds(t *testing.T) {
	for base := 0.0; base <= 255; base += 5 {
		for cut := 1.0; cut <= 255; cut += 7 {
			f := BrightnessFactor(base, cut)
			require.GreaterOrEqual(t, f, 0.7)
			require.LessOrEqual(t, f, 1.3)
		}
	}
}

func TestMatchLeavesBlackTransparentLayerUnchanged(t *testing.T) {
	cutout := image.NewNRGBA(image.Rect(0, 0, 16, 16))

	out, factor := NewToneMatcher().Match(uniform(8, 8, gray), cutout)
	assert.Equal(t, 1.0, factor)
	assert.Equal(t, cutout.Pix, out.Pix)
}

func TestMatchPreservesAlpha(t *testing.T) {
	cutout := noise(30, 30, 9)
	for i := 3; i < len(cutout.Pix); i += 4 {
		cutout.Pix[i] = uint8(i % 256)
	}

	out, _ := NewToneMatcher().Match(uniform(10, 10, gray), cutout)
	for i := 3; i < len(cutout.Pix); i += 4 {
		require.Equal(t, cutout.Pix[i], out.Pix[i])
	}
}
