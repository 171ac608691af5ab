package service

import (
	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"
	"eduverse-backend/internal/util"

	"go.uber.org/zap"
)

// StatsService 汇总系统统计数据，供运维面板使用
type StatsService struct {
	donationRepo    interfaces.DonationRepository
	projectRepo     interfaces.ProjectRepository
	nftRepo         interfaces.NFTRepository
	mintMaxAttempts int
}

func NewStatsService(
	donationRepo interfaces.DonationRepository,
	projectRepo interfaces.ProjectRepository,
	nftRepo interfaces.NFTRepository,
	mintMaxAttempts int,
) *StatsService {
	return &StatsService{
		donationRepo:    donationRepo,
		projectRepo:     projectRepo,
		nftRepo:         nftRepo,
		mintMaxAttempts: mintMaxAttempts,
	}
}

// GetSystemStats 获取系统统计数据
func (s *StatsService) GetSystemStats() (*model.SystemStats, error) {
	stats := &model.SystemStats{}

	var err error
	if stats.TotalProjects, err = s.projectRepo.Count(); err != nil {
		util.Logger.Error("统计项目总数失败", zap.Error(err))
		return nil, err
	}
	if stats.ActiveProjects, err = s.projectRepo.CountByStatus(model.ProjectStatusActive); err != nil {
		return nil, err
	}

	confirmed, err := s.donationRepo.CountByStatus(model.DonationStatusConfirmed)
	if err != nil {
		return nil, err
	}
	minted, err := s.donationRepo.CountByStatus(model.DonationStatusNFTMinted)
	if err != nil {
		return nil, err
	}
	stats.TotalDonations = confirmed + minted

	if stats.PendingDonations, err = s.donationRepo.CountByStatus(model.DonationStatusPending); err != nil {
		return nil, err
	}
	if stats.TotalLovelace, err = s.donationRepo.TotalConfirmedLovelace(); err != nil {
		return nil, err
	}
	if stats.MintedNFTs, err = s.nftRepo.CountMinted(); err != nil {
		return nil, err
	}

	stuck, err := s.donationRepo.ListStuck(s.mintMaxAttempts)
	if err != nil {
		return nil, err
	}
	stats.StuckDonations = len(stuck)

	return stats, nil
}
