package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alihoumani6/instastage-backend/staging"
)

const providerOpenAI = "openai"

// openAIClient images 接口的公共部分：鉴权、结果解码与错误分类
type openAIClient struct {
	apiKey  string
	baseURL string
	model   string
	op      string
	httpc   *http.Client
}

func newOpenAIClient(apiKey, baseURL, model, op string) *openAIClient {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 180 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   20,
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		op:      op,
		// 超时交给调用方的 context
		httpc: &http.Client{Transport: tr},
	}
}

type openAIImagesResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (c *openAIClient) requireKey() error {
	if c.apiKey == "" {
		return c.fail(0, "", "OPENAI_API_KEY not set", nil)
	}
	return nil
}

// post 发送请求，返回 b64_json 解码后的图片或下载 url 指向的图片
func (c *openAIClient) post(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, c.fail(0, "", err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(resp.StatusCode, "", "read response: "+err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, raw)
	}

	var out openAIImagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, c.fail(resp.StatusCode, "", "decode response: "+err.Error(), err)
	}
	if len(out.Data) == 0 {
		return nil, c.fail(resp.StatusCode, "", "response contained no image", nil)
	}

	first := out.Data[0]
	switch {
	case first.B64JSON != "":
		img, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, c.fail(resp.StatusCode, "", "decode b64_json: "+err.Error(), err)
		}
		return img, nil
	case first.URL != "":
		return c.download(ctx, first.URL)
	default:
		return nil, c.fail(resp.StatusCode, "", "response contained no image", nil)
	}
}

func (c *openAIClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, c.fail(0, "", "download image: "+err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(resp.StatusCode, "", "download image: "+resp.Status, nil)
	}
	return io.ReadAll(resp.Body)
}

// statusError 把非 200 响应转换为 ServiceError，并判断能否降级到备用模型
func (c *openAIClient) statusError(status int, raw []byte) error {
	var env openAIErrorResponse
	msg := strings.TrimSpace(string(raw))
	code := ""
	errType := ""
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		msg = env.Error.Message
		errType = env.Error.Type
		if env.Error.Code != nil {
			code = fmt.Sprint(env.Error.Code)
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	se := c.fail(status, code, msg, nil)
	se.Fallback = status == http.StatusForbidden ||
		status == http.StatusNotFound ||
		code == "model_not_found" ||
		errType == "invalid_request_error" ||
		strings.Contains(msg, "must be verified")
	return se
}

func (c *openAIClient) fail(status int, code, msg string, cause error) *staging.ServiceError {
	return &staging.ServiceError{
		Provider: providerOpenAI,
		Op:       c.op,
		Model:    c.model,
		Status:   status,
		Code:     code,
		Message:  msg,
		Err:      cause,
	}
}
