package service

import (
	"context"
	"fmt"
	"time"

	"eduverse-backend/internal/common"
	"eduverse-backend/internal/metrics"
	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"go.uber.org/zap"
)

// providerCallRetries 单次操作内对瞬时提供者故障的重试次数
const providerCallRetries = 3

// CreateDonationInput 创建捐赠的输入
type CreateDonationInput struct {
	DonorID         int
	DonorAddress    string
	DonorEmail      string
	ProjectID       int
	AmountLovelace  int64
	TransactionHash string
	Message         string
}

// ConfirmOutcome 确认操作的结果。验证结果为 pending 时捐赠保持原状，
// 调用方稍后重试，不视为错误。
type ConfirmOutcome struct {
	Donation     *model.Donation     `json:"donation"`
	Verification *VerificationResult `json:"verification"`
	Project      *model.Project      `json:"project,omitempty"`
	NFT          *model.NFT          `json:"nft,omitempty"`
}

// DonationService 捐赠状态机。独占捐赠记录的状态迁移，
// 并保证每笔捐赠的铸造语义上至多发生一次。
// 所有状态迁移都是以当前状态为守卫的条件更新，而不是盲目覆盖。
type DonationService struct {
	donationRepo interfaces.DonationRepository
	nftRepo      interfaces.NFTRepository
	verifier     *VerificationService
	minter       *MinterService
	funding      *FundingService
	notifier     ReceiptNotifier
	metrics      *metrics.Registry

	platformAddress string
	mintMaxAttempts int
	retryBaseDelay  time.Duration
}

func NewDonationService(
	donationRepo interfaces.DonationRepository,
	nftRepo interfaces.NFTRepository,
	verifier *VerificationService,
	minter *MinterService,
	funding *FundingService,
	notifier ReceiptNotifier,
	reg *metrics.Registry,
	platformAddress string,
	mintMaxAttempts int,
	retryBaseDelay time.Duration,
) *DonationService {
	return &DonationService{
		donationRepo:    donationRepo,
		nftRepo:         nftRepo,
		verifier:        verifier,
		minter:          minter,
		funding:         funding,
		notifier:        notifier,
		metrics:         reg,
		platformAddress: platformAddress,
		mintMaxAttempts: mintMaxAttempts,
		retryBaseDelay:  retryBaseDelay,
	}
}

// CreateDonation 创建 pending 状态的捐赠记录。
// 所有校验都在任何区块链调用之前完成，校验失败不产生任何副作用。
func (s *DonationService) CreateDonation(input CreateDonationInput) (*model.Donation, error) {
	if input.AmountLovelace < model.MinDonationLovelace {
		return nil, apperrors.New(apperrors.ErrAmountTooSmall,
			fmt.Sprintf("donation amount must be at least %d lovelace", model.MinDonationLovelace))
	}
	if !util.IsValidTxHash(input.TransactionHash) {
		return nil, apperrors.New(apperrors.ErrValidation, "transaction hash must be a 64-character hex string")
	}
	if len(input.Message) > 500 {
		return nil, apperrors.New(apperrors.ErrValidation, "message must not exceed 500 characters")
	}
	if input.DonorAddress == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "donor address is required")
	}

	project, err := s.funding.GetProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != model.ProjectStatusActive && project.Status != model.ProjectStatusFunded {
		return nil, apperrors.New(apperrors.ErrProjectClosed,
			fmt.Sprintf("project is not accepting donations (status: %s)", project.Status))
	}

	// 交易哈希全局唯一，是链下记录与链上支付之间的幂等键
	existing, err := s.donationRepo.GetByTxHash(input.TransactionHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询重复交易失败", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.ErrDuplicateTxHash, "a donation with this transaction hash already exists")
	}

	donation := &model.Donation{
		DonorID:         input.DonorID,
		DonorAddress:    input.DonorAddress,
		ProjectID:       input.ProjectID,
		AmountLovelace:  input.AmountLovelace,
		TransactionHash: input.TransactionHash,
		Status:          model.DonationStatusPending,
		Message:         input.Message,
	}

	if err := s.donationRepo.Create(donation); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "创建捐赠记录失败", err)
	}

	s.metrics.IncDonation("created")
	return donation, nil
}

// ConfirmDonation 验证链上支付并推进状态机：pending -> confirmed。
// 只允许从 pending 确认；对非 pending 捐赠的确认请求返回冲突，
// 防止两个并发确认请求造成重复入账。
func (s *DonationService) ConfirmDonation(ctx context.Context, donationID int, txHash string) (*ConfirmOutcome, error) {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
	}
	if donation == nil {
		return nil, apperrors.New(apperrors.ErrDonationNotFound, "donation not found")
	}
	if txHash != "" && txHash != donation.TransactionHash {
		return nil, apperrors.New(apperrors.ErrValidation, "transaction hash does not match donation record")
	}
	if donation.Status != model.DonationStatusPending {
		return nil, apperrors.New(apperrors.ErrResourceConflict,
			fmt.Sprintf("donation cannot be confirmed from status %q", donation.Status))
	}

	var result *VerificationResult
	err = common.WithRetry(ctx, func() error {
		var verr error
		result, verr = s.verifier.VerifyPayment(ctx, donation.TransactionHash, donation.AmountLovelace, s.platformAddress)
		return verr
	}, providerCallRetries, s.retryBaseDelay)
	if err != nil {
		return nil, err
	}

	s.metrics.IncVerification(result.Status)

	switch result.Status {
	case VerificationPending:
		// 交易未进块不是错误，调用方稍后重试
		return &ConfirmOutcome{Donation: donation, Verification: result}, nil
	case VerificationFailed:
		// 金额或地址不匹配是终态，直接回报给用户
		return nil, apperrors.New(apperrors.ErrVerificationFailed, result.Message)
	}

	var blockHeight int64
	if result.BlockHeight != nil {
		blockHeight = *result.BlockHeight
	}

	confirmed, err := s.donationRepo.ConfirmWherePending(donationID, blockHeight, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "确认捐赠失败", err)
	}
	if !confirmed {
		// 并发确认竞争中落败，守卫保证第一次确认的效果不被破坏
		return nil, apperrors.New(apperrors.ErrResourceConflict, "donation was already confirmed")
	}

	project, err := s.funding.ApplyDonation(donation.ProjectID, donation.AmountLovelace)
	if err != nil {
		// 捐赠已确认但入账失败，保留确认状态并上报错误，绝不回滚捐赠
		util.Logger.Error("捐赠已确认但项目入账失败",
			zap.Error(err),
			zap.Int("donation_id", donationID))
		return nil, err
	}

	donation, err = s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
	}

	outcome := &ConfirmOutcome{
		Donation:     donation,
		Verification: result,
		Project:      project,
	}

	// 铸造是尽力而为：失败时捐赠停留在 confirmed，资金不回滚，之后可以重试
	mintedDonation, nft, mintErr := s.AttemptMint(ctx, donationID)
	if mintErr != nil {
		util.Logger.Warn("确认后的内联铸造失败，捐赠保持 confirmed",
			zap.Error(mintErr),
			zap.Int("donation_id", donationID))
		return outcome, nil
	}
	outcome.Donation = mintedDonation
	outcome.NFT = nft
	return outcome, nil
}

// AttemptMint 为已确认的捐赠尝试铸造收据 NFT：confirmed -> nft_minted。
// 铸造失败时状态保持 confirmed（不进入失败桶），已入账的资金不受影响，
// 后续重试仍然可能。对已铸造的捐赠重复调用幂等地返回既有资产。
func (s *DonationService) AttemptMint(ctx context.Context, donationID int) (*model.Donation, *model.NFT, error) {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
	}
	if donation == nil {
		return nil, nil, apperrors.New(apperrors.ErrDonationNotFound, "donation not found")
	}

	switch donation.Status {
	case model.DonationStatusNFTMinted:
		// 已经铸造过，返回既有资产而不是报错
		nft, err := s.nftRepo.GetByDonationID(donationID)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询NFT失败", err)
		}
		return donation, nft, nil
	case model.DonationStatusConfirmed:
		// 继续铸造
	default:
		return nil, nil, apperrors.New(apperrors.ErrResourceConflict,
			fmt.Sprintf("donation must be confirmed before minting (status: %s)", donation.Status))
	}

	project, err := s.funding.GetProject(donation.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	// 先记录尝试次数，后台扫描据此判断重试是否耗尽
	if err := s.donationRepo.IncrementMintAttempts(donationID); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "记录铸造尝试失败", err)
	}

	var outcome *MintOutcome
	err = common.WithRetry(ctx, func() error {
		var merr error
		outcome, merr = s.minter.Mint(ctx, donation, project, donation.DonorAddress)
		return merr
	}, providerCallRetries, s.retryBaseDelay)
	if err != nil {
		s.metrics.IncMintAttempt("failure")
		util.Logger.Error("铸造收据NFT失败",
			zap.Error(err),
			zap.Int("donation_id", donationID),
			zap.Int("mint_attempts", donation.MintAttempts+1))
		return nil, nil, err
	}

	nft := &model.NFT{
		DonationID:    donationID,
		AssetID:       outcome.AssetID,
		PolicyID:      outcome.PolicyID,
		AssetName:     outcome.AssetName,
		Metadata:      outcome.MetadataJSON,
		TxHash:        outcome.TxHash,
		Confirmations: 0,
		Status:        model.NFTStatusMinting,
		OwnerAddress:  donation.DonorAddress,
	}
	if err := s.nftRepo.Create(nft); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "保存NFT记录失败", err)
	}

	minted, err := s.donationRepo.MarkMintedWhereConfirmed(
		donationID, outcome.AssetID, outcome.PolicyID, outcome.MetadataJSON, time.Now())
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "更新捐赠铸造状态失败", err)
	}
	if !minted {
		// 并发铸造竞争中落败；确定性资产名保证链上只有一个资产，按成功处理
		util.Logger.Warn("铸造状态守卫未命中，读取既有结果",
			zap.Int("donation_id", donationID))
		donation, err = s.donationRepo.GetByID(donationID)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
		}
		existing, err := s.nftRepo.GetByDonationID(donationID)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询NFT失败", err)
		}
		return donation, existing, nil
	}

	if err := s.nftRepo.MarkMinted(donationID, outcome.TxHash); err != nil {
		util.Logger.Error("更新NFT状态失败", zap.Error(err), zap.Int("donation_id", donationID))
	}
	nft.Status = model.NFTStatusMinted
	nft.Confirmations = 1

	s.metrics.IncMintAttempt("success")

	donation, err = s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
	}

	util.Logger.Info("捐赠收据NFT铸造完成",
		zap.Int("donation_id", donationID),
		zap.String("asset_id", outcome.AssetID))
	return donation, nft, nil
}

// NotifyReceipt 铸造完成后尽力发送收据通知
func (s *DonationService) NotifyReceipt(email string, donation *model.Donation, nft *model.NFT) {
	if nft == nil || donation == nil {
		return
	}
	s.notifier.SendReceipt(email, donation, nft)
}

// GetDonation 查询捐赠及其NFT
func (s *DonationService) GetDonation(donationID int) (*model.Donation, *model.NFT, error) {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询捐赠失败", err)
	}
	if donation == nil {
		return nil, nil, apperrors.New(apperrors.ErrDonationNotFound, "donation not found")
	}
	nft, err := s.nftRepo.GetByDonationID(donationID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询NFT失败", err)
	}
	return donation, nft, nil
}

// ListDonorDonations 查询捐赠者的捐赠记录
func (s *DonationService) ListDonorDonations(donorID, page, pageSize int) ([]*model.Donation, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.donationRepo.ListByDonor(donorID, page, pageSize)
}

// ListProjectDonations 查询项目最近的已确认捐赠
func (s *DonationService) ListProjectDonations(projectID, limit int) ([]*model.Donation, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.donationRepo.ListRecentByProject(projectID, limit)
}

// Leaderboard 捐赠排行榜
func (s *DonationService) Leaderboard(limit int) ([]*model.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.donationRepo.Leaderboard(limit)
}

// ListStuckDonations 列出铸造重试耗尽、等待运维介入的捐赠
func (s *DonationService) ListStuckDonations() ([]*model.Donation, error) {
	stuck, err := s.donationRepo.ListStuck(s.mintMaxAttempts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询滞留捐赠失败", err)
	}
	s.metrics.SetStuckDepth(len(stuck))
	return stuck, nil
}

// RetryPendingMints 后台扫描：为重试次数未耗尽的已确认捐赠重试铸造。
// 重试有上限，耗尽后捐赠以 confirmed 状态滞留，通过运维队列人工处理。
func (s *DonationService) RetryPendingMints(ctx context.Context) error {
	donations, err := s.donationRepo.ListRetryable(s.mintMaxAttempts, 10)
	if err != nil {
		return err
	}

	for _, donation := range donations {
		if _, _, err := s.AttemptMint(ctx, donation.ID); err != nil {
			util.Logger.Warn("后台铸造重试失败",
				zap.Error(err),
				zap.Int("donation_id", donation.ID),
				zap.Int("mint_attempts", donation.MintAttempts+1))
		}
	}

	// 更新滞留队列深度指标
	if stuck, err := s.donationRepo.ListStuck(s.mintMaxAttempts); err == nil {
		s.metrics.SetStuckDepth(len(stuck))
	}
	return nil
}
