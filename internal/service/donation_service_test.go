package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"eduverse-backend/internal/blockchain"
	"eduverse-backend/internal/metrics"
	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"

	apperrors "eduverse-backend/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) Create(donation *model.Donation) error {
	args := m.Called(donation)
	return args.Error(0)
}

func (m *MockDonationRepository) GetByID(id int) (*model.Donation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) GetByTxHash(txHash string) (*model.Donation, error) {
	args := m.Called(txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) ConfirmWherePending(id int, blockHeight int64, confirmedAt time.Time) (bool, error) {
	args := m.Called(id, blockHeight, confirmedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDonationRepository) MarkMintedWhereConfirmed(id int, assetID, policyID, metadata string, mintedAt time.Time) (bool, error) {
	args := m.Called(id, assetID, policyID, metadata, mintedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDonationRepository) IncrementMintAttempts(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDonationRepository) ListByDonor(donorID, page, pageSize int) ([]*model.Donation, error) {
	args := m.Called(donorID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListRecentByProject(projectID, limit int) ([]*model.Donation, error) {
	args := m.Called(projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListStuck(maxAttempts int) ([]*model.Donation, error) {
	args := m.Called(maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) ListRetryable(maxAttempts, limit int) ([]*model.Donation, error) {
	args := m.Called(maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Donation), args.Error(1)
}

func (m *MockDonationRepository) Leaderboard(limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LeaderboardEntry), args.Error(1)
}

func (m *MockDonationRepository) CountByStatus(status model.DonationStatus) (int, error) {
	args := m.Called(status)
	return args.Int(0), args.Error(1)
}

func (m *MockDonationRepository) TotalConfirmedLovelace() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetByID(id int) (*model.Project, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) ApplyDonation(projectID int, amountLovelace int64) (*model.Project, error) {
	args := m.Called(projectID, amountLovelace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepository) ExpireOverdue() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockProjectRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockProjectRepository) CountByStatus(status model.ProjectStatus) (int, error) {
	args := m.Called(status)
	return args.Int(0), args.Error(1)
}

type MockNFTRepository struct {
	mock.Mock
}

func (m *MockNFTRepository) Create(nft *model.NFT) error {
	args := m.Called(nft)
	return args.Error(0)
}

func (m *MockNFTRepository) MarkMinted(donationID int, txHash string) error {
	args := m.Called(donationID, txHash)
	return args.Error(0)
}

func (m *MockNFTRepository) GetByDonationID(donationID int) (*model.NFT, error) {
	args := m.Called(donationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NFT), args.Error(1)
}

func (m *MockNFTRepository) GetByAssetID(assetID string) (*model.NFT, error) {
	args := m.Called(assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NFT), args.Error(1)
}

func (m *MockNFTRepository) CountMinted() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// newTestDonationService 装配一套测试用的服务栈：
// 仓库层用 mock，提供者用内存假账本，验证和铸造走真实服务逻辑。
func newTestDonationService(provider *blockchain.FakeProvider, donationRepo *MockDonationRepository, projectRepo *MockProjectRepository, nftRepo *MockNFTRepository) *DonationService {
	verifier := NewVerificationService(provider)
	minter := NewMinterService(provider, nil, testMinterConfig())
	funding := NewFundingService(projectRepo)
	return NewDonationService(
		donationRepo, nftRepo, verifier, minter, funding,
		NopNotifier{}, metrics.NewRegistry(),
		testPlatformAddress, 5, time.Millisecond,
	)
}

func activeProject() *model.Project {
	return &model.Project{
		ID:                  7,
		Title:               "Quantum Error Correction",
		Category:            "physics",
		Status:              model.ProjectStatusActive,
		FundingGoalLovelace: 100_000_000,
	}
}

func pendingDonation() *model.Donation {
	return &model.Donation{
		ID:              1,
		DonorID:         10,
		DonorAddress:    "addr1qxdonor",
		ProjectID:       7,
		AmountLovelace:  5_000_000,
		TransactionHash: strings.Repeat("a", 64),
		Status:          model.DonationStatusPending,
		CreatedAt:       time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

// TestCreateDonationValidation 测试输入校验在任何副作用之前拒绝非法请求
func TestCreateDonationValidation(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	valid := CreateDonationInput{
		DonorID:         10,
		DonorAddress:    "addr1qxdonor",
		ProjectID:       7,
		AmountLovelace:  5_000_000,
		TransactionHash: strings.Repeat("a", 64),
	}

	// 金额低于最小值
	input := valid
	input.AmountLovelace = 999_999
	_, err := service.CreateDonation(input)
	assert.Equal(t, apperrors.ErrAmountTooSmall, apperrors.CodeOf(err))

	// 交易哈希格式非法
	input = valid
	input.TransactionHash = "not-a-hash"
	_, err = service.CreateDonation(input)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// 留言超长
	input = valid
	input.Message = strings.Repeat("x", 501)
	_, err = service.CreateDonation(input)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// 缺少捐赠者地址
	input = valid
	input.DonorAddress = ""
	_, err = service.CreateDonation(input)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// 校验失败不触碰任何仓库
	donationRepo.AssertNotCalled(t, "Create", mock.Anything)
	donationRepo.AssertNotCalled(t, "GetByTxHash", mock.Anything)
	projectRepo.AssertNotCalled(t, "GetByID", mock.Anything)
}

// TestCreateDonationProjectClosed 测试向非活跃项目捐赠被拒绝
func TestCreateDonationProjectClosed(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	closed := activeProject()
	closed.Status = model.ProjectStatusCancelled
	projectRepo.On("GetByID", 7).Return(closed, nil)

	_, err := service.CreateDonation(CreateDonationInput{
		DonorID:         10,
		DonorAddress:    "addr1qxdonor",
		ProjectID:       7,
		AmountLovelace:  5_000_000,
		TransactionHash: strings.Repeat("a", 64),
	})
	assert.Equal(t, apperrors.ErrProjectClosed, apperrors.CodeOf(err))
	donationRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// TestCreateDonationDuplicateTxHash 测试交易哈希全局唯一
func TestCreateDonationDuplicateTxHash(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	txHash := strings.Repeat("a", 64)
	projectRepo.On("GetByID", 7).Return(activeProject(), nil)
	donationRepo.On("GetByTxHash", txHash).Return(pendingDonation(), nil)

	_, err := service.CreateDonation(CreateDonationInput{
		DonorID:         10,
		DonorAddress:    "addr1qxdonor",
		ProjectID:       7,
		AmountLovelace:  5_000_000,
		TransactionHash: txHash,
	})
	assert.Equal(t, apperrors.ErrDuplicateTxHash, apperrors.CodeOf(err))
	donationRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// TestCreateDonationSuccess 测试成功创建 pending 捐赠
func TestCreateDonationSuccess(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	txHash := strings.Repeat("a", 64)
	projectRepo.On("GetByID", 7).Return(activeProject(), nil)
	donationRepo.On("GetByTxHash", txHash).Return(nil, nil)
	donationRepo.On("Create", mock.AnythingOfType("*model.Donation")).Return(nil)

	donation, err := service.CreateDonation(CreateDonationInput{
		DonorID:         10,
		DonorAddress:    "addr1qxdonor",
		ProjectID:       7,
		AmountLovelace:  5_000_000,
		TransactionHash: txHash,
		Message:         "Good luck!",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.DonationStatusPending, donation.Status)
	donationRepo.AssertExpectations(t)
}

// TestConfirmDonationHappyPath 测试完整状态机：pending 经确认入账后铸造为 nft_minted
func TestConfirmDonationHappyPath(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	pending := pendingDonation()
	provider.AddTransaction(&blockchain.Transaction{
		Hash:        pending.TransactionHash,
		BlockHeight: int64ptr(2048),
		Outputs: []blockchain.TxOutput{
			{Address: testPlatformAddress, AmountLovelace: pending.AmountLovelace},
		},
	})

	confirmed := *pending
	confirmed.Status = model.DonationStatusConfirmed

	minted := confirmed
	minted.Status = model.DonationStatusNFTMinted

	donationRepo.On("GetByID", 1).Return(pending, nil).Once()
	donationRepo.On("ConfirmWherePending", 1, int64(2048), mock.AnythingOfType("time.Time")).Return(true, nil)
	projectRepo.On("ApplyDonation", 7, int64(5_000_000)).Return(activeProject(), nil)
	donationRepo.On("GetByID", 1).Return(&confirmed, nil).Twice()
	projectRepo.On("GetByID", 7).Return(activeProject(), nil)
	donationRepo.On("IncrementMintAttempts", 1).Return(nil)
	nftRepo.On("Create", mock.AnythingOfType("*model.NFT")).Return(nil)
	donationRepo.On("MarkMintedWhereConfirmed", 1, mock.Anything, "policy123", mock.Anything, mock.AnythingOfType("time.Time")).Return(true, nil)
	nftRepo.On("MarkMinted", 1, mock.Anything).Return(nil)
	donationRepo.On("GetByID", 1).Return(&minted, nil).Once()

	outcome, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.NoError(t, err)
	assert.Equal(t, model.DonationStatusNFTMinted, outcome.Donation.Status)
	assert.True(t, outcome.Verification.Verified)
	assert.NotNil(t, outcome.NFT)
	assert.Equal(t, "EduReceipt000001", outcome.NFT.AssetName)
	assert.Equal(t, model.NFTStatusMinted, outcome.NFT.Status)
	donationRepo.AssertExpectations(t)
	nftRepo.AssertExpectations(t)
}

// TestConfirmDonationStillPendingOnChain 测试未进块的交易不推进状态机也不报错
func TestConfirmDonationStillPendingOnChain(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	pending := pendingDonation()
	donationRepo.On("GetByID", 1).Return(pending, nil)

	outcome, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.NoError(t, err)
	assert.Equal(t, model.DonationStatusPending, outcome.Donation.Status)
	assert.Equal(t, VerificationPending, outcome.Verification.Status)
	donationRepo.AssertNotCalled(t, "ConfirmWherePending", mock.Anything, mock.Anything, mock.Anything)
	projectRepo.AssertNotCalled(t, "ApplyDonation", mock.Anything, mock.Anything)
}

// TestConfirmDonationVerificationFailed 测试金额不足的终态失败
func TestConfirmDonationVerificationFailed(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	pending := pendingDonation()
	provider.AddTransaction(&blockchain.Transaction{
		Hash:        pending.TransactionHash,
		BlockHeight: int64ptr(2048),
		Outputs: []blockchain.TxOutput{
			{Address: testPlatformAddress, AmountLovelace: 1_000_000},
		},
	})
	donationRepo.On("GetByID", 1).Return(pending, nil)

	_, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.Equal(t, apperrors.ErrVerificationFailed, apperrors.CodeOf(err))
	donationRepo.AssertNotCalled(t, "ConfirmWherePending", mock.Anything, mock.Anything, mock.Anything)
}

// TestConfirmDonationTxHashMismatch 测试请求携带的哈希与记录不符
func TestConfirmDonationTxHashMismatch(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	donationRepo.On("GetByID", 1).Return(pendingDonation(), nil)

	_, err := service.ConfirmDonation(context.Background(), 1, strings.Repeat("b", 64))
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

// TestConfirmDonationAlreadyConfirmed 测试重复确认返回冲突
func TestConfirmDonationAlreadyConfirmed(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	confirmed := pendingDonation()
	confirmed.Status = model.DonationStatusConfirmed
	donationRepo.On("GetByID", 1).Return(confirmed, nil)

	_, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.Equal(t, apperrors.ErrResourceConflict, apperrors.CodeOf(err))
}

// TestConfirmDonationConcurrentGuardMiss 测试并发确认竞争中落败方不入账
func TestConfirmDonationConcurrentGuardMiss(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	pending := pendingDonation()
	provider.AddTransaction(&blockchain.Transaction{
		Hash:        pending.TransactionHash,
		BlockHeight: int64ptr(2048),
		Outputs: []blockchain.TxOutput{
			{Address: testPlatformAddress, AmountLovelace: pending.AmountLovelace},
		},
	})
	donationRepo.On("GetByID", 1).Return(pending, nil)
	donationRepo.On("ConfirmWherePending", 1, int64(2048), mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.Equal(t, apperrors.ErrResourceConflict, apperrors.CodeOf(err))
	projectRepo.AssertNotCalled(t, "ApplyDonation", mock.Anything, mock.Anything)
}

// TestConfirmDonationProjectStopsAccepting 测试确认时项目刚好过期：
// 入账失败以业务错误码回报，而不是存储故障
func TestConfirmDonationProjectStopsAccepting(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	pending := pendingDonation()
	provider.AddTransaction(&blockchain.Transaction{
		Hash:        pending.TransactionHash,
		BlockHeight: int64ptr(2048),
		Outputs: []blockchain.TxOutput{
			{Address: testPlatformAddress, AmountLovelace: pending.AmountLovelace},
		},
	})
	donationRepo.On("GetByID", 1).Return(pending, nil)
	donationRepo.On("ConfirmWherePending", 1, int64(2048), mock.AnythingOfType("time.Time")).Return(true, nil)
	projectRepo.On("ApplyDonation", 7, int64(5_000_000)).
		Return(nil, fmt.Errorf("project 7: %w", interfaces.ErrProjectNotAccepting))

	_, err := service.ConfirmDonation(context.Background(), 1, "")
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrProjectClosed, apperrors.CodeOf(err))
}

// TestAttemptMintRequiresConfirmed 测试未确认的捐赠不允许铸造
func TestAttemptMintRequiresConfirmed(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	donationRepo.On("GetByID", 1).Return(pendingDonation(), nil)

	_, _, err := service.AttemptMint(context.Background(), 1)
	assert.Equal(t, apperrors.ErrResourceConflict, apperrors.CodeOf(err))
	assert.Equal(t, 0, provider.MintCalls)
}

// TestAttemptMintIdempotentWhenAlreadyMinted 测试对已铸造捐赠的重复调用返回既有资产
func TestAttemptMintIdempotentWhenAlreadyMinted(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	minted := pendingDonation()
	minted.Status = model.DonationStatusNFTMinted
	existing := &model.NFT{DonationID: 1, AssetID: "policy123456564755265637074303030303031", Status: model.NFTStatusMinted}

	donationRepo.On("GetByID", 1).Return(minted, nil)
	nftRepo.On("GetByDonationID", 1).Return(existing, nil)

	donation, nft, err := service.AttemptMint(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, existing, nft)
	assert.Equal(t, model.DonationStatusNFTMinted, donation.Status)
	assert.Equal(t, 0, provider.MintCalls)
	donationRepo.AssertNotCalled(t, "IncrementMintAttempts", mock.Anything)
}

// TestAttemptMintTransientFailureThenRetrySameAsset 测试瞬时故障耗尽重试后捐赠
// 停留在 confirmed，后续重试复用同一个确定性资产名
func TestAttemptMintTransientFailureThenRetrySameAsset(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	confirmed := pendingDonation()
	confirmed.Status = model.DonationStatusConfirmed
	minted := *confirmed
	minted.Status = model.DonationStatusNFTMinted

	// 让单次操作内的全部重试都失败
	provider.FailMints = providerCallRetries

	donationRepo.On("GetByID", 1).Return(confirmed, nil).Times(2)
	projectRepo.On("GetByID", 7).Return(activeProject(), nil)
	donationRepo.On("IncrementMintAttempts", 1).Return(nil)

	_, _, err := service.AttemptMint(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrProviderUnavailable, apperrors.CodeOf(err))
	assert.Equal(t, providerCallRetries, provider.MintCalls)
	donationRepo.AssertNotCalled(t, "MarkMintedWhereConfirmed",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// 故障恢复后的重试使用同一个资产名
	nftRepo.On("Create", mock.AnythingOfType("*model.NFT")).Return(nil)
	donationRepo.On("MarkMintedWhereConfirmed", 1, mock.Anything, "policy123", mock.Anything, mock.AnythingOfType("time.Time")).Return(true, nil)
	nftRepo.On("MarkMinted", 1, mock.Anything).Return(nil)
	donationRepo.On("GetByID", 1).Return(&minted, nil).Once()

	donation, nft, err := service.AttemptMint(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, model.DonationStatusNFTMinted, donation.Status)
	assert.Equal(t, "EduReceipt000001", nft.AssetName)
	assert.Equal(t, providerCallRetries+1, provider.MintCalls)
}

// TestAttemptMintConcurrentGuardMiss 测试铸造守卫未命中时按成功读取既有结果
func TestAttemptMintConcurrentGuardMiss(t *testing.T) {
	provider := blockchain.NewFakeProvider()
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(provider, donationRepo, projectRepo, nftRepo)

	confirmed := pendingDonation()
	confirmed.Status = model.DonationStatusConfirmed
	minted := *confirmed
	minted.Status = model.DonationStatusNFTMinted
	existing := &model.NFT{DonationID: 1, AssetName: "EduReceipt000001", Status: model.NFTStatusMinted}

	donationRepo.On("GetByID", 1).Return(confirmed, nil).Once()
	projectRepo.On("GetByID", 7).Return(activeProject(), nil)
	donationRepo.On("IncrementMintAttempts", 1).Return(nil)
	nftRepo.On("Create", mock.AnythingOfType("*model.NFT")).Return(nil)
	donationRepo.On("MarkMintedWhereConfirmed", 1, mock.Anything, "policy123", mock.Anything, mock.AnythingOfType("time.Time")).Return(false, nil)
	donationRepo.On("GetByID", 1).Return(&minted, nil).Once()
	nftRepo.On("GetByDonationID", 1).Return(existing, nil)

	donation, nft, err := service.AttemptMint(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, model.DonationStatusNFTMinted, donation.Status)
	assert.Equal(t, existing, nft)
	nftRepo.AssertNotCalled(t, "MarkMinted", mock.Anything, mock.Anything)
}

// TestListStuckDonations 测试滞留队列查询并更新指标
func TestListStuckDonations(t *testing.T) {
	donationRepo := new(MockDonationRepository)
	projectRepo := new(MockProjectRepository)
	nftRepo := new(MockNFTRepository)
	service := newTestDonationService(blockchain.NewFakeProvider(), donationRepo, projectRepo, nftRepo)

	stuck := pendingDonation()
	stuck.Status = model.DonationStatusConfirmed
	stuck.MintAttempts = 5
	donationRepo.On("ListStuck", 5).Return([]*model.Donation{stuck}, nil)

	donations, err := service.ListStuckDonations()
	assert.NoError(t, err)
	assert.Len(t, donations, 1)
	donationRepo.AssertExpectations(t)
}
