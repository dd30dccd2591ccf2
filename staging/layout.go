package staging

import (
	"math"
	"strings"

	"github.com/alihoumani6/instastage-backend/config"
)

// LayerRole 家具图层的语义类别
type LayerRole int

const (
	RoleRug LayerRole = iota
	RoleAux
	RoleMain
)

func (r LayerRole) String() string {
	switch r {
	case RoleRug:
		return "rug"
	case RoleAux:
		return "aux"
	case RoleMain:
		return "main"
	default:
		return "unknown"
	}
}

const (
	minWidthFraction = 0.18
	maxWidthFraction = 0.92
	floorLineRatio   = 0.74
)

// ShadowParams 地面接触阴影参数
type ShadowParams struct {
	Blur    int
	Opacity int
	Squash  float64
}

// RolePlacement 单个图层的尺寸、偏移与阴影
type RolePlacement struct {
	WidthFraction float64
	OffsetY       int
	Shadow        ShadowParams
}

// RoomPlacementSpec 某个房间类型在给定画布上的布局
type RoomPlacementSpec struct {
	FloorY  int
	Keyword string
	Roles   map[LayerRole]RolePlacement
	Order   []LayerRole
}

// roomOverride 关键字命中后替换的宽度比例，MainMin 与配置的主宽度取较大值
type roomOverride struct {
	Keyword    string
	Rug        float64
	MainMin    float64
	Aux        float64
	AuxOffsetY *int
}

var bedAuxOffset = -4

// 优先级从高到低，第一个命中的关键字生效
var roomOverrides = []roomOverride{
	{Keyword: "bed", Rug: 0.86, MainMin: 0.58, Aux: 0.24, AuxOffsetY: &bedAuxOffset},
	{Keyword: "dining", Rug: 0.84, MainMin: 0.52, Aux: 0.24},
	{Keyword: "office", Rug: 0.68, MainMin: 0.50, Aux: 0.24},
	{Keyword: "kids", Rug: 0.78, MainMin: 0.52, Aux: 0.28},
	{Keyword: "kitchen", Rug: 0.58, MainMin: 0.44, Aux: 0.22},
	{Keyword: "bath", Rug: 0.52, MainMin: 0.36, Aux: 0.18},
}

var defaultShadows = map[LayerRole]ShadowParams{
	RoleRug:  {Blur: 16, Opacity: 70, Squash: 0.18},
	RoleAux:  {Blur: 18, Opacity: 80, Squash: 0.22},
	RoleMain: {Blur: 22, Opacity: 90, Squash: 0.26},
}

// RoomLayoutPlanner 把房间类型映射为布局参数
type RoomLayoutPlanner struct {
	mainWidth float64
}

func NewRoomLayoutPlanner(cfg *config.LayoutConfig) *RoomLayoutPlanner {
	mainWidth := cfg.MainWidthFraction
	if mainWidth <= 0 {
		mainWidth = config.DefaultLayoutConfig().MainWidthFraction
	}
	return &RoomLayoutPlanner{mainWidth: mainWidth}
}

// Overrides 返回按优先级排列的关键字表副本
func (p *RoomLayoutPlanner) Overrides() []string {
	keys := make([]string, len(roomOverrides))
	for i, o := range roomOverrides {
		keys[i] = o.Keyword
	}
	return keys
}

// Plan 计算布局，floorYOverride 非空时直接作为地面线
func (p *RoomLayoutPlanner) Plan(roomType string, width, height int, floorYOverride *int) RoomPlacementSpec {
	floorY := int(math.Round(float64(height) * floorLineRatio))
	if floorYOverride != nil {
		floorY = *floorYOverride
	}

	rug, mainW, aux := 0.78, p.mainWidth, 0.26
	auxOffset := -6
	keyword := ""

	rt := strings.ToLower(roomType)
	for _, o := range roomOverrides {
		if !strings.Contains(rt, o.Keyword) {
			continue
		}
		keyword = o.Keyword
		rug, mainW, aux = o.Rug, max(o.MainMin, p.mainWidth), o.Aux
		if o.AuxOffsetY != nil {
			auxOffset = *o.AuxOffsetY
		}
		break
	}

	place := func(role LayerRole, fraction float64, offset int) RolePlacement {
		return RolePlacement{
			WidthFraction: clampf(fraction, minWidthFraction, maxWidthFraction),
			OffsetY:       offset,
			Shadow:        defaultShadows[role],
		}
	}

	return RoomPlacementSpec{
		FloorY:  floorY,
		Keyword: keyword,
		Roles: map[LayerRole]RolePlacement{
			RoleRug:  place(RoleRug, rug, 0),
			RoleAux:  place(RoleAux, aux, auxOffset),
			RoleMain: place(RoleMain, mainW, 0),
		},
		Order: []LayerRole{RoleRug, RoleAux, RoleMain},
	}
}
