package staging

import (
	"context"
	"errors"
	"fmt"
)

// EditRequest 发送给外部编辑服务的请求
type EditRequest struct {
	Image    []byte
	MIMEType string
	RoomType string
	Style    string
	// Mask 为空时允许编辑整张图
	Mask []byte
}

// Editor 外部图像编辑服务
type Editor interface {
	Edit(ctx context.Context, req EditRequest) ([]byte, error)
}

// ServiceError 编辑服务返回的非成功状态或传输失败
type ServiceError struct {
	Provider string
	Op       string
	Model    string
	Status   int
	Code     string
	Message  string
	// Fallback 为 true 表示可以换用备用模型重试
	Fallback bool
	Err      error
}

func (e *ServiceError) Error() string {
	op := e.Op
	if op == "" {
		op = "edit"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s %s failed: %s", e.Provider, op, e.Message)
	}
	return fmt.Sprintf("%s %s error %d: %s", e.Provider, op, e.Status, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsFallbackError 判断错误是否允许切换到备用模型
func IsFallbackError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Fallback
}
