package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDeriveMintKey 测试铸造幂等键的确定性
func TestDeriveMintKey(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// 同一笔捐赠多次派生得到同一个键
	first := DeriveMintKey(42, createdAt)
	second := DeriveMintKey(42, createdAt)
	assert.Equal(t, first, second)
	assert.Equal(t, "EduReceipt000042", first.AssetName)
	assert.Equal(t, "RCPT-2024-000042", first.ReceiptNumber)

	// 不同捐赠派生出不同的键
	other := DeriveMintKey(43, createdAt)
	assert.NotEqual(t, first.AssetName, other.AssetName)
	assert.NotEqual(t, first.ReceiptNumber, other.ReceiptNumber)

	// Cardano 资产名上限 32 字节
	assert.LessOrEqual(t, len(first.AssetName), 32)
}
