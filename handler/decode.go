package handler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"strings"

	_ "golang.org/x/image/webp"
)

var errInvalidUpload = errors.New("invalid upload")

// upload 读取到内存的上传文件
type upload struct {
	data     []byte
	mimeType string
	img      image.Image
}

// readUpload 读取并解码表单文件，类型和大小不合法时返回错误
func (h *StageHandler) readUpload(fh *multipart.FileHeader) (*upload, error) {
	if fh.Size > h.cfg.Upload.MaxSize {
		return nil, fmt.Errorf("%w: %s exceeds size limit (%d MB)", errInvalidUpload, fh.Filename, h.cfg.Upload.MaxSize/(1024*1024))
	}
	contentType := fh.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		return nil, fmt.Errorf("%w: unsupported file type %q for %s", errInvalidUpload, contentType, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.Upload.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", errInvalidUpload, fh.Filename, err)
	}
	return &upload{data: data, mimeType: "image/" + format, img: img}, nil
}

func (h *StageHandler) isAllowedType(contentType string) bool {
	// 部分客户端不发送 Content-Type，交给解码器判断
	if contentType == "" || contentType == "application/octet-stream" {
		return true
	}
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
