package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/staging"
	"github.com/alihoumani6/instastage-backend/utils"
	"go.uber.org/zap"
)

var styleHints = map[string]string{
	"modern":       "modern, clean lines, neutral fabrics, matte finishes",
	"scandinavian": "light wood, airy, cozy, natural textures",
	"industrial":   "metal and wood mix, darker tones, rugged",
	"midcentury":   "walnut, tapered legs, retro silhouettes",
	"luxury":       "plush upholstery, metallic accents, refined",
	"coastal":      "light linens, rattan, pale blues",
	"farmhouse":    "wood textures, warm neutrals, casual",
	"standard":     "tasteful, neutral palette",
}

// editPrompt 构造只允许添加家具的编辑提示词
func editPrompt(roomType, style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	if s == "" {
		s = "standard"
	}
	if hint, ok := styleHints[s]; ok {
		s = fmt.Sprintf("%s (%s)", s, hint)
	}
	return fmt.Sprintf(
		"Virtually stage this %s by ADDING only %s furniture and decor. "+
			"DO NOT modify existing walls, windows, doors, flooring, paint, trim, fireplace, or built-ins. "+
			"Respect camera perspective and lighting; add subtle object shadows on the floor if needed, "+
			"but avoid global color/contrast changes. Keep the composition authentic and photorealistic.",
		strings.ToLower(roomType), s)
}

// FallbackEditor 主编辑器返回可降级错误时改用备用编辑器，其他错误直接返回
type FallbackEditor struct {
	primary   staging.Editor
	secondary staging.Editor
}

func NewFallbackEditor(primary, secondary staging.Editor) *FallbackEditor {
	return &FallbackEditor{primary: primary, secondary: secondary}
}

func (f *FallbackEditor) Edit(ctx context.Context, req staging.EditRequest) ([]byte, error) {
	var secondary func() ([]byte, error)
	if f.secondary != nil {
		secondary = func() ([]byte, error) { return f.secondary.Edit(ctx, req) }
	}
	return withFallback("edit",
		func() ([]byte, error) { return f.primary.Edit(ctx, req) },
		secondary)
}

// withFallback 主调用返回可降级错误时执行备用调用；备用也失败时两个错误一并返回
func withFallback(op string, primary, secondary func() ([]byte, error)) ([]byte, error) {
	out, err := primary()
	if err == nil || secondary == nil || !staging.IsFallbackError(err) {
		return out, err
	}
	utils.Logger.Warn("primary model unavailable, using fallback",
		zap.String("op", op), zap.Error(err))
	out, serr := secondary()
	if serr != nil {
		return nil, errors.Join(err, serr)
	}
	return out, nil
}

// NewEditor 按配置创建编辑服务客户端
func NewEditor(ctx context.Context, cfg *config.EditorConfig) (staging.Editor, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		primary := NewOpenAIEditor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if cfg.OpenAIFallback == "" || cfg.OpenAIFallback == cfg.OpenAIModel {
			return primary, nil
		}
		secondary := NewOpenAIEditor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIFallback)
		return NewFallbackEditor(primary, secondary), nil
	case "gemini":
		g, err := NewGeminiEditor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown editor provider %q; use 'openai' or 'gemini'", cfg.Provider)
	}
}
