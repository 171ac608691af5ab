package interfaces

import (
	"errors"

	"eduverse-backend/internal/model"
)

// ErrProjectNotAccepting 入账的状态守卫未命中：项目不存在，
// 或已不在接受捐赠的状态（expired/cancelled 等）。
var ErrProjectNotAccepting = errors.New("project not found or not accepting donations")

type ProjectRepository interface {
	GetByID(id int) (*model.Project, error)
	// ApplyDonation 原子入账：累加筹款额并截断到目标值、递增支持者数、
	// 重算项目状态，全部在单条条件更新中完成，返回更新后的项目。
	ApplyDonation(projectID int, amountLovelace int64) (*model.Project, error)
	// ExpireOverdue 将所有已过截止日期的 active 项目置为 expired，返回影响行数
	ExpireOverdue() (int, error)
	Count() (int, error)
	CountByStatus(status model.ProjectStatus) (int, error)
}
