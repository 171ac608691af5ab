package model

import "time"

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusFunded    ProjectStatus = "funded"
	ProjectStatusExpired   ProjectStatus = "expired"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project 学生科研项目模型。资金字段全部为 lovelace 整数，不使用浮点数。
// 不变量：CurrentFundingLovelace <= FundingGoalLovelace（超额部分在入账时截断）。
type Project struct {
	ID                     int           `json:"id"`
	Title                  string        `json:"title"`
	CreatorID              int           `json:"creator_id"`
	Category               string        `json:"category"`
	FundingGoalLovelace    int64         `json:"funding_goal_lovelace"`
	CurrentFundingLovelace int64         `json:"current_funding_lovelace"`
	BackersCount           int           `json:"backers_count"`
	Deadline               time.Time     `json:"deadline"`
	Status                 ProjectStatus `json:"status"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// IsFunded 判断项目是否已达成筹款目标
func (p *Project) IsFunded() bool {
	return p.CurrentFundingLovelace >= p.FundingGoalLovelace
}

// SystemStats 系统统计数据
type SystemStats struct {
	TotalProjects    int   `json:"total_projects"`
	ActiveProjects   int   `json:"active_projects"`
	TotalDonations   int   `json:"total_donations"`
	TotalLovelace    int64 `json:"total_lovelace"`
	MintedNFTs       int   `json:"minted_nfts"`
	StuckDonations   int   `json:"stuck_donations"`
	PendingDonations int   `json:"pending_donations"`
}
