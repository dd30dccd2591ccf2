package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alihoumani6/instastage-backend/staging"
	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiEditor 通过 Gemini 图像模型添加家具
type GeminiEditor struct {
	client *genai.Client
	model  string
}

func NewGeminiEditor(ctx context.Context, apiKey, model string) (*GeminiEditor, error) {
	if apiKey == "" {
		return nil, &staging.ServiceError{Provider: providerGemini, Model: model, Message: "GEMINI_API_KEY not set"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEditor{client: client, model: model}, nil
}

func (g *GeminiEditor) Edit(ctx context.Context, req staging.EditRequest) ([]byte, error) {
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: req.Image, MIMEType: mimeType}},
		{Text: editPrompt(req.RoomType, req.Style)},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, &genai.GenerateContentConfig{
		CandidateCount:     1,
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, g.classify(err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, &staging.ServiceError{
			Provider: providerGemini,
			Model:    g.model,
			Message:  "prompt blocked: " + string(result.PromptFeedback.BlockReason),
		}
	}

	img, err := firstInlineImage(result)
	if err != nil {
		return nil, &staging.ServiceError{Provider: providerGemini, Model: g.model, Message: err.Error()}
	}
	return img, nil
}

// classify 将 SDK 错误转换为 ServiceError，403/404 允许降级
func (g *GeminiEditor) classify(err error) error {
	se := &staging.ServiceError{Provider: providerGemini, Model: g.model, Message: err.Error(), Err: err}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr):
		apiErr = *apiErrPtr
	default:
		return se
	}
	se.Status = apiErr.Code
	se.Code = apiErr.Status
	if apiErr.Message != "" {
		se.Message = apiErr.Message
	}
	se.Fallback = apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusNotFound
	return se
}

// firstInlineImage 返回第一个候选结果中的第一张图片
func firstInlineImage(result *genai.GenerateContentResponse) ([]byte, error) {
	if result == nil {
		return nil, errors.New("empty response")
	}
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			if strings.HasPrefix(part.InlineData.MIMEType, "image/") && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("response contained no image")
}
