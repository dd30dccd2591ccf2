package staging

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeKeepsCanvasOutsideLayers(t *testing.T) {
	base := uniform(400, 300, white)
	sc := NewSceneCompositor(newPlanner(0.48))

	out, err := sc.Compose(context.Background(), base, "Living room", SceneLayers{
		Rug:  uniform(100, 20, blue),
		Main: uniform(100, 50, red),
		Aux:  uniform(40, 40, red),
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, base.Bounds(), out.Bounds())

	for y := 0; y < 40; y++ {
		for x := 0; x < 400; x++ {
			require.Equal(t, white, out.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(255), out.Pix[i])
	}
}

func TestComposePaintsMainOverRug(t *testing.T) {
	base := uniform(400, 300, white)
	sc := NewSceneCompositor(newPlanner(0.48))

	out, err := sc.Compose(context.Background(), base, "Living room", SceneLayers{
		Rug:  uniform(100, 50, blue),
		Main: uniform(100, 50, red),
	}, nil, nil)
	require.NoError(t, err)

	c := out.NRGBAAt(200, 200)
	assert.Greater(t, c.R, uint8(200))
	assert.Less(t, c.B, uint8(50))
}

func TestComposeUsesMainCenterHint(t *testing.T) {
	base := uniform(400, 300, white)
	sc := NewSceneCompositor(newPlanner(0.48))
	layers := SceneLayers{Main: uniform(100, 50, red)}

	centered, err := sc.Compose(context.Background(), base, "Living room", layers, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, white, centered.NRGBAAt(10, 180))

	hint := 96
	shifted, err := sc.Compose(context.Background(), base, "Living room", layers, nil, &hint)
	require.NoError(t, err)
	c := shifted.NRGBAAt(10, 180)
	assert.Greater(t, c.R, uint8(200))
	assert.Less(t, c.G, uint8(50))
	assert.Equal(t, white, shifted.NRGBAAt(390, 180))
}

func TestComposeClampsIntoCanvas(t *testing.T) {
	base := uniform(200, 100, white)
	sc := NewSceneCompositor(newPlanner(0.48))
	floor := 5
	hint := 10000

	out, err := sc.Compose(context.Background(), base, "Bedroom", SceneLayers{Main: uniform(40, 40, red)}, &floor, &hint)
	require.NoError(t, err)

	// main: 116x116 缩放后高于画布，被夹到顶部并贴右边
	c := out.NRGBAAt(199, 1)
	assert.Greater(t, c.R, uint8(200))
	assert.Less(t, c.G, uint8(50))
}

func TestComposeRejectsDegenerateInput(t *testing.T) {
	sc := NewSceneCompositor(newPlanner(0.48))

	_, err := sc.Compose(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)), "Bedroom", SceneLayers{}, nil, nil)
	assert.ErrorIs(t, err, ErrDegenerateImage)

	_, err = sc.Compose(context.Background(), uniform(50, 50, white), "Bedroom", SceneLayers{
		Aux: image.NewNRGBA(image.Rect(0, 0, 0, 3)),
	}, nil, nil)
	assert.ErrorIs(t, err, ErrDegenerateImage)
}

func TestComposeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSceneCompositor(newPlanner(0.48)).Compose(ctx, uniform(50, 50, white), "Bedroom", SceneLayers{
		Main: uniform(10, 10, red),
	}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposeIsDeterministic(t *testing.T) {
	base := noise(160, 120, 4)
	layers := SceneLayers{
		Rug:  noise(60, 20, 5),
		Main: noise(50, 30, 6),
		Aux:  noise(20, 20, 7),
	}
	sc := NewSceneCompositor(newPlanner(0.48))

	first, err := sc.Compose(context.Background(), base, "Dining room", layers, nil, nil)
	require.NoError(t, err)
	second, err := sc.Compose(context.Background(), base, "Dining room", layers, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)
}
