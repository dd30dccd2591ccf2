package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/alihoumani6/instastage-backend/staging"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// OpenAIEditor 调用 images/edits 接口
type OpenAIEditor struct {
	*openAIClient
}

func NewOpenAIEditor(apiKey, baseURL, model string) *OpenAIEditor {
	return &OpenAIEditor{newOpenAIClient(apiKey, baseURL, model, "edit")}
}

// WithHTTPClient 替换内部 HTTP 客户端
func (e *OpenAIEditor) WithHTTPClient(c *http.Client) *OpenAIEditor {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *OpenAIEditor) Model() string { return e.model }

func (e *OpenAIEditor) Edit(ctx context.Context, req staging.EditRequest) ([]byte, error) {
	if err := e.requireKey(); err != nil {
		return nil, err
	}

	body, contentType, err := e.multipartBody(req)
	if err != nil {
		return nil, fmt.Errorf("build edit request: %w", err)
	}
	return e.post(ctx, "/images/edits", body, contentType)
}

func (e *OpenAIEditor) multipartBody(req staging.EditRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", e.model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("prompt", editPrompt(req.RoomType, req.Style)); err != nil {
		return nil, "", err
	}

	data, mimeType := req.Image, req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	// dall-e 系列的 edits 只接受 PNG
	if isDallE(e.model) && mimeType != "image/png" {
		png, err := toPNG(data)
		if err != nil {
			return nil, "", err
		}
		data, mimeType = png, "image/png"
	}
	if err := writeFilePart(w, "image", "image"+extFor(mimeType), mimeType, data); err != nil {
		return nil, "", err
	}
	if len(req.Mask) > 0 {
		if err := writeFilePart(w, "mask", "mask.png", "image/png", req.Mask); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func isDallE(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "dall-e")
}

func toPNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image for png: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFilePart(w *multipart.Writer, field, filename, mimeType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
