package interfaces

import (
	"time"

	"eduverse-backend/internal/model"
)

type DonationRepository interface {
	Create(donation *model.Donation) error
	GetByID(id int) (*model.Donation, error)
	GetByTxHash(txHash string) (*model.Donation, error)
	// ConfirmWherePending 条件更新：仅当状态为 pending 时写入 confirmed。
	// 返回 false 表示状态守卫未命中（并发确认或状态机冲突）。
	ConfirmWherePending(id int, blockHeight int64, confirmedAt time.Time) (bool, error)
	// MarkMintedWhereConfirmed 条件更新：仅当状态为 confirmed 且尚未写入资产时生效
	MarkMintedWhereConfirmed(id int, assetID, policyID, metadata string, mintedAt time.Time) (bool, error)
	IncrementMintAttempts(id int) error
	ListByDonor(donorID, page, pageSize int) ([]*model.Donation, error)
	ListRecentByProject(projectID, limit int) ([]*model.Donation, error)
	// ListStuck 列出已确认、未铸造且重试次数达到上限的捐赠，供运维介入
	ListStuck(maxAttempts int) ([]*model.Donation, error)
	// ListRetryable 列出已确认、未铸造且重试次数未达上限的捐赠，供后台扫描重试
	ListRetryable(maxAttempts, limit int) ([]*model.Donation, error)
	Leaderboard(limit int) ([]*model.LeaderboardEntry, error)
	CountByStatus(status model.DonationStatus) (int, error)
	TotalConfirmedLovelace() (int64, error)
}
