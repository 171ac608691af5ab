package model

import "time"

// DonationStatus 捐赠状态（封闭类型，不允许任意字符串）
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusConfirmed DonationStatus = "confirmed"
	DonationStatusNFTMinted DonationStatus = "nft_minted"
)

// MinDonationLovelace 最低捐赠金额（1 ADA）
const MinDonationLovelace int64 = 1_000_000

// donationTransitions 捐赠状态转移表。
// confirmed 没有到 nft_minted 以外的后继状态：铸造失败时捐赠停留在 confirmed，
// 资金不回滚，铸造可以重试。
var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusPending:   {DonationStatusConfirmed},
	DonationStatusConfirmed: {DonationStatusNFTMinted},
	DonationStatusNFTMinted: {},
}

// CanTransition 判断状态转移是否合法
func (s DonationStatus) CanTransition(to DonationStatus) bool {
	for _, next := range donationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValid 判断是否为已知状态
func (s DonationStatus) IsValid() bool {
	_, ok := donationTransitions[s]
	return ok
}

// Donation 捐赠记录模型
type Donation struct {
	ID              int            `json:"id"`
	DonorID         int            `json:"donor_id"`
	DonorAddress    string         `json:"donor_address"`
	ProjectID       int            `json:"project_id"`
	AmountLovelace  int64          `json:"amount_lovelace"`
	TransactionHash string         `json:"transaction_hash"`
	Status          DonationStatus `json:"status"`
	BlockHeight     *int64         `json:"block_height,omitempty"`
	NFTAssetID      *string        `json:"nft_asset_id,omitempty"`
	NFTPolicyID     *string        `json:"nft_policy_id,omitempty"`
	NFTMetadata     *string        `json:"nft_metadata,omitempty"`
	Message         string         `json:"message,omitempty"`
	MintAttempts    int            `json:"mint_attempts"`
	CreatedAt       time.Time      `json:"created_at"`
	ConfirmedAt     *time.Time     `json:"confirmed_at,omitempty"`
	NFTMintedAt     *time.Time     `json:"nft_minted_at,omitempty"`
}

// LeaderboardEntry 捐赠排行榜条目
type LeaderboardEntry struct {
	DonorID       int   `json:"donor_id"`
	TotalLovelace int64 `json:"total_lovelace"`
	DonationCount int   `json:"donation_count"`
}
