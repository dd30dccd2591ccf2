package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// StagedKey 生成暂存结果的缓存键
func StagedKey(imageMD5, roomType, style string) string {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	}
	return imageMD5 + ":" + slug(roomType) + ":" + slug(style)
}
