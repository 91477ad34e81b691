package shortcode

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLength 是自动生成短码的默认长度
	DefaultLength = 6
	// ExtendedLength 是连续冲突后切换到的加长长度
	ExtendedLength = 8
)

// codePattern 用于校验用户自定义短码：6-8 位字母或数字
var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Generate 使用加密安全的随机数生成器生成一个给定长度的短码
// 生成器本身不感知已存在的短码，唯一性由存储层在插入时保证
func Generate(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(Charset))))
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}

// IsValid 检查短码是否符合格式要求
func IsValid(code string) bool {
	return codePattern.MatchString(code)
}
