package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCodeOfUnwrapsErrorChain 测试错误码能穿透 fmt.Errorf 包装取出
func TestCodeOfUnwrapsErrorChain(t *testing.T) {
	appErr := New(ErrProjectClosed, "project is no longer accepting donations")
	assert.Equal(t, ErrProjectClosed, CodeOf(appErr))

	// 被 %w 包装后仍能取到业务错误码
	wrapped := fmt.Errorf("入账失败: %w", appErr)
	assert.Equal(t, ErrProjectClosed, CodeOf(wrapped))

	// 多层 AppError 取最外层的错误码
	layered := Wrap(ErrDatabase, "查询失败", New(ErrProviderUnavailable, "gateway down"))
	assert.Equal(t, ErrDatabase, CodeOf(layered))

	// 链上没有 AppError 视为内部错误
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain failure")))
}

// TestIsRetryableThroughWrapping 测试可重试判定穿透包装
func TestIsRetryableThroughWrapping(t *testing.T) {
	transient := New(ErrProviderUnavailable, "gateway timeout")
	assert.True(t, IsRetryable(transient))
	assert.True(t, IsRetryable(fmt.Errorf("提交失败: %w", transient)))

	assert.False(t, IsRetryable(New(ErrPolicyExpired, "policy window passed")))
	assert.False(t, IsRetryable(New(ErrVerificationFailed, "amount mismatch")))
}
