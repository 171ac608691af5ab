package util

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// 交易哈希为 64 位十六进制字符串
var txHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ValidateFutureDate 验证日期是否在未来
func ValidateFutureDate(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return date.After(time.Now())
}

// ValidateTxHash 验证链上交易哈希格式
func ValidateTxHash(fl validator.FieldLevel) bool {
	return IsValidTxHash(fl.Field().String())
}

// IsValidTxHash 判断字符串是否为合法的 64 位十六进制交易哈希
func IsValidTxHash(hash string) bool {
	return txHashPattern.MatchString(hash)
}
