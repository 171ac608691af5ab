package model

import "time"

// NFTStatus NFT 铸造状态
type NFTStatus string

// 铸造失败时不落失败状态：没有成功提交就没有 NFT 行，
// 对应的捐赠停留在 confirmed 等待重试。
const (
	NFTStatusMinting NFTStatus = "minting"
	NFTStatusMinted  NFTStatus = "minted"
)

// NFT 捐赠收据 NFT 模型，与成功铸造的捐赠一一对应
type NFT struct {
	ID            int       `json:"id"`
	DonationID    int       `json:"donation_id"`
	AssetID       string    `json:"asset_id"`
	PolicyID      string    `json:"policy_id"`
	AssetName     string    `json:"asset_name"`
	Metadata      string    `json:"metadata"` // CIP-25 JSON
	TxHash        string    `json:"tx_hash"`
	BlockHeight   *int64    `json:"block_height,omitempty"`
	Confirmations int       `json:"confirmations"`
	Status        NFTStatus `json:"status"`
	OwnerAddress  string    `json:"owner_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NFTAttribute CIP-25 元数据中的属性项
type NFTAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}
