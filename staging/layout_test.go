package staging

import (
	"testing"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/stretchr/testify/assert"
)

func newPlanner(mainWidth float64) *RoomLayoutPlanner {
	return NewRoomLayoutPlanner(&config.LayoutConfig{MainWidthFraction: mainWidth})
}

func TestPlanBedroom(t *testing.T) {
	spec := newPlanner(0.48).Plan("Bedroom", 1000, 800, nil)

	assert.Equal(t, 592, spec.FloorY)
	assert.Equal(t, "bed", spec.Keyword)
	assert.InDelta(t, 0.86, spec.Roles[RoleRug].WidthFraction, 1e-9)
	assert.InDelta(t, 0.58, spec.Roles[RoleMain].WidthFraction, 1e-9)
	assert.InDelta(t, 0.24, spec.Roles[RoleAux].WidthFraction, 1e-9)
	assert.Equal(t, -4, spec.Roles[RoleAux].OffsetY)
}

func TestPlanDefaults(t *testing.T) {
	spec := newPlanner(0.48).Plan("Sunroom", 640, 480, nil)

	assert.Equal(t, 355, spec.FloorY)
	assert.Empty(t, spec.Keyword)
	assert.InDelta(t, 0.78, spec.Roles[RoleRug].WidthFraction, 1e-9)
	assert.InDelta(t, 0.48, spec.Roles[RoleMain].WidthFraction, 1e-9)
	assert.InDelta(t, 0.26, spec.Roles[RoleAux].WidthFraction, 1e-9)
	assert.Equal(t, -6, spec.Roles[RoleAux].OffsetY)
	assert.Equal(t, []LayerRole{RoleRug, RoleAux, RoleMain}, spec.Order)
}

func TestPlanFloorOverride(t *testing.T) {
	floor := 410
	spec := newPlanner(0.48).Plan("kitchen", 640, 480, &floor)
	assert.Equal(t, 410, spec.FloorY)
}

func TestPlanKeywordPrecedence(t *testing.T) {
	cases := []struct {
		room    string
		keyword string
		rug     float64
		main    float64
		aux     float64
	}{
		{"Kids bathroom", "kids", 0.78, 0.52, 0.28},
		{"dining room next to office", "dining", 0.84, 0.52, 0.24},
		{"Home Office", "office", 0.68, 0.50, 0.24},
		{"KITCHEN", "kitchen", 0.58, 0.48, 0.22},
		{"Bathroom", "bath", 0.52, 0.48, 0.18},
		{"guest bedroom office", "bed", 0.86, 0.58, 0.24},
	}
	p := newPlanner(0.48)
	for _, c := range cases {
		t.Run(c.room, func(t *testing.T) {
			spec := p.Plan(c.room, 800, 600, nil)
			assert.Equal(t, c.keyword, spec.Keyword)
			assert.InDelta(t, c.rug, spec.Roles[RoleRug].WidthFraction, 1e-9)
			assert.InDelta(t, c.main, spec.Roles[RoleMain].WidthFraction, 1e-9)
			assert.InDelta(t, c.aux, spec.Roles[RoleAux].WidthFraction, 1e-9)
		})
	}
}

func TestPlanWidthFractionsAreClamped(t *testing.T) {
	rooms := []string{"", "Living room", "Bedroom", "Dining room", "Home office", "Kids room", "Kitchen", "Bathroom", "attic"}
	for _, mainWidth := range []float64{0.01, 0.3, 0.48, 0.75, 0.99, 3} {
		p := newPlanner(mainWidth)
		for _, room := range rooms {
			spec := p.Plan(room, 1200, 900, nil)
			for role, placement := range spec.Roles {
				assert.GreaterOrEqual(t, placement.WidthFraction, 0.18, "%s %s", room, role)
				assert.LessOrEqual(t, placement.WidthFraction, 0.92, "%s %s", room, role)
			}
		}
	}
}

func TestPlanShadowParameters(t *testing.T) {
	spec := newPlanner(0.48).Plan("Living room", 800, 600, nil)

	assert.Equal(t, ShadowParams{Blur: 16, Opacity: 70, Squash: 0.18}, spec.Roles[RoleRug].Shadow)
	assert.Equal(t, ShadowParams{Blur: 18, Opacity: 80, Squash: 0.22}, spec.Roles[RoleAux].Shadow)
	assert.Equal(t, ShadowParams{Blur: 22, Opacity: 90, Squash: 0.26}, spec.Roles[RoleMain].Shadow)
}

func TestPlannerFallsBackToDefaultMainWidth(t *testing.T) {
	spec := NewRoomLayoutPlanner(&config.LayoutConfig{}).Plan("Living room", 800, 600, nil)
	assert.InDelta(t, 0.48, spec.Roles[RoleMain].WidthFraction, 1e-9)
}

func TestOverridesOrder(t *testing.T) {
	assert.Equal(t, []string{"bed", "dining", "office", "kids", "kitchen", "bath"}, newPlanner(0.48).Overrides())
}
