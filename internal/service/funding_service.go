package service

import (
	"errors"

	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"go.uber.org/zap"
)

// FundingService 负责项目筹款总额与支持者数的原子入账。
// 入账本身是仓库层的单条条件更新，这里不需要进程内锁。
type FundingService struct {
	projectRepo interfaces.ProjectRepository
}

func NewFundingService(projectRepo interfaces.ProjectRepository) *FundingService {
	return &FundingService{projectRepo: projectRepo}
}

// ApplyDonation 将一笔已确认的捐赠计入项目。
// 超出筹款目标的部分被截断（接受但不体现在总额上）；
// 达到目标后项目状态置为 funded。不修改捐赠记录。
func (s *FundingService) ApplyDonation(projectID int, amountLovelace int64) (*model.Project, error) {
	project, err := s.projectRepo.ApplyDonation(projectID, amountLovelace)
	if err != nil {
		util.Logger.Error("项目入账失败",
			zap.Error(err),
			zap.Int("project_id", projectID),
			zap.Int64("amount_lovelace", amountLovelace))
		// 状态守卫未命中是业务错误（项目刚过期或被取消），不是存储故障
		if errors.Is(err, interfaces.ErrProjectNotAccepting) {
			return nil, apperrors.Wrap(apperrors.ErrProjectClosed, "project is no longer accepting donations", err)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "项目入账失败", err)
	}

	if project.IsFunded() {
		util.Logger.Info("项目已达成筹款目标",
			zap.Int("project_id", project.ID),
			zap.Int64("funding_goal", project.FundingGoalLovelace))
	}
	return project, nil
}

// GetProject 查询项目
func (s *FundingService) GetProject(projectID int) (*model.Project, error) {
	project, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询项目失败", err)
	}
	if project == nil {
		return nil, apperrors.New(apperrors.ErrProjectNotFound, "project not found")
	}
	return project, nil
}

// CheckExpiredProjects 将已过截止日期的 active 项目置为 expired
func (s *FundingService) CheckExpiredProjects() error {
	count, err := s.projectRepo.ExpireOverdue()
	if err != nil {
		return err
	}
	if count > 0 {
		util.Logger.Info("过期项目检查完成", zap.Int("expired_count", count))
	}
	return nil
}
