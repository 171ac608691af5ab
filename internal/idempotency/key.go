package idempotency

import (
	"fmt"
	"time"
)

// MintKey 铸造幂等键。同一笔捐赠的每次铸造尝试都会派生出同一个键，
// 链上资产名由它决定：重试复用同一个资产名，时间锁定策略保证同名资产
// 在策略窗口内至多铸造一次，因此不需要额外的去重表。
type MintKey struct {
	ReceiptNumber string
	AssetName     string
}

// assetNamePrefix 资产名前缀。Cardano 资产名上限 32 字节，
// 前缀加 6 位序号远在限制之内。
const assetNamePrefix = "EduReceipt"

// DeriveMintKey 从捐赠ID确定性地派生铸造幂等键
func DeriveMintKey(donationID int, createdAt time.Time) MintKey {
	return MintKey{
		ReceiptNumber: fmt.Sprintf("RCPT-%d-%06d", createdAt.Year(), donationID),
		AssetName:     fmt.Sprintf("%s%06d", assetNamePrefix, donationID),
	}
}
