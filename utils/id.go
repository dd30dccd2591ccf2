package utils

import (
	"github.com/google/uuid"
)

// GenerateJobID 为一次合成请求生成唯一ID
func GenerateJobID() string {
	return uuid.NewString()
}
