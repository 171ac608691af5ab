package common

import (
	"context"
	"time"

	apperrors "eduverse-backend/internal/errors"
)

// IsTemporary 判断是否为临时性错误
func IsTemporary(err error) bool {
	if temp, ok := err.(interface{ Temporary() bool }); ok {
		return temp.Temporary()
	}
	return false
}

// IsRetryable 判断是否可重试
func IsRetryable(err error) bool {
	return IsTemporary(err) || apperrors.IsRetryable(err)
}

// WithRetry 通用重试机制，指数退避，受 context 取消约束。
// 不可重试的错误立即返回，不消耗重试次数。
func WithRetry(ctx context.Context, operation func() error, maxRetries int, baseDelay time.Duration) error {
	var err error
	delay := baseDelay
	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
