package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduverse-backend/internal/blockchain"
	"eduverse-backend/internal/idempotency"
	"eduverse-backend/internal/model"
	"eduverse-backend/internal/storage"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"go.uber.org/zap"
)

// 链上元数据的字节上限（CIP-25：单个字符串最长 64 字节）
const (
	maxNameBytes       = 64
	maxMetaStringBytes = 64
	lovelacePerADA     = 1_000_000
)

// MinterConfig 铸造服务配置
type MinterConfig struct {
	PolicyID         string
	PolicyExpirySlot int64
	ImageBaseURL     string
	ExternalBaseURL  string
}

// MintOutcome 铸造结果
type MintOutcome struct {
	AssetID       string `json:"asset_id"`
	PolicyID      string `json:"policy_id"`
	AssetName     string `json:"asset_name"`
	MetadataJSON  string `json:"metadata"`
	TxHash        string `json:"tx_hash"`
	ReceiptNumber string `json:"receipt_number"`
	AlreadyExists bool   `json:"-"`
}

// MinterService 构建收据元数据、派生唯一资产名并提交铸造交易。
// 资产名从捐赠的收据号确定性派生：同一笔捐赠的重试复用同一个资产名，
// 时间锁定铸造策略保证同名资产至多铸造一次，"资产已存在"按成功处理。
type MinterService struct {
	provider blockchain.Provider
	archive  storage.Storage
	config   MinterConfig
}

func NewMinterService(provider blockchain.Provider, archive storage.Storage, config MinterConfig) *MinterService {
	return &MinterService{
		provider: provider,
		archive:  archive,
		config:   config,
	}
}

// Mint 为已确认的捐赠铸造收据 NFT
func (s *MinterService) Mint(ctx context.Context, donation *model.Donation, project *model.Project, ownerAddress string) (*MintOutcome, error) {
	key := idempotency.DeriveMintKey(donation.ID, donation.CreatedAt)

	util.Logger.Info("开始铸造收据NFT",
		zap.Int("donation_id", donation.ID),
		zap.String("asset_name", key.AssetName),
		zap.String("receipt_number", key.ReceiptNumber))

	// 策略窗口已过则快速失败，不再提交交易
	currentSlot, err := s.provider.GetCurrentSlot(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, "查询当前槽位失败", err)
	}
	if s.config.PolicyExpirySlot > 0 && currentSlot >= s.config.PolicyExpirySlot {
		util.Logger.Error("铸造策略窗口已过期",
			zap.Int64("current_slot", currentSlot),
			zap.Int64("expiry_slot", s.config.PolicyExpirySlot))
		return nil, apperrors.New(apperrors.ErrPolicyExpired,
			fmt.Sprintf("minting policy expired at slot %d, current slot %d", s.config.PolicyExpirySlot, currentSlot))
	}

	metadataJSON, err := s.buildMetadata(donation, project, key)
	if err != nil {
		// 元数据构建失败是调用方缺陷，不可重试
		return nil, apperrors.Wrap(apperrors.ErrMintFailed, "构建NFT元数据失败", err)
	}

	result, err := s.provider.SubmitMintTransaction(ctx, blockchain.MintRequest{
		PolicyID:     s.config.PolicyID,
		AssetName:    key.AssetName,
		MetadataJSON: metadataJSON,
		OwnerAddress: ownerAddress,
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyExists {
		util.Logger.Info("资产已存在于链上，按成功处理",
			zap.Int("donation_id", donation.ID),
			zap.String("asset_id", result.AssetID))
	}

	outcome := &MintOutcome{
		AssetID:       result.AssetID,
		PolicyID:      s.config.PolicyID,
		AssetName:     key.AssetName,
		MetadataJSON:  metadataJSON,
		TxHash:        result.TxHash,
		ReceiptNumber: key.ReceiptNumber,
		AlreadyExists: result.AlreadyExists,
	}

	s.archiveMetadata(outcome)

	util.Logger.Info("铸造交易已提交",
		zap.Int("donation_id", donation.ID),
		zap.String("asset_id", outcome.AssetID),
		zap.String("mint_tx_hash", outcome.TxHash))
	return outcome, nil
}

// buildMetadata 构建 CIP-25 格式的收据元数据。
// 所有字符串字段按 UTF-8 字节数截断到链上限制。
func (s *MinterService) buildMetadata(donation *model.Donation, project *model.Project, key idempotency.MintKey) (string, error) {
	name := util.TruncateUTF8Bytes(fmt.Sprintf("Eduverse Receipt %s", key.ReceiptNumber), maxNameBytes)

	description := fmt.Sprintf("Donation receipt for project %q", project.Title)
	if donation.Message != "" {
		description = fmt.Sprintf("%s. Donor message: %s", description, donation.Message)
	}

	asset := map[string]interface{}{
		"name":         name,
		"description":  util.ChunkUTF8Bytes(description, maxMetaStringBytes),
		"image":        s.config.ImageBaseURL,
		"mediaType":    "image/png",
		"external_url": util.ChunkUTF8Bytes(fmt.Sprintf("%s/projects/%d", s.config.ExternalBaseURL, project.ID), maxMetaStringBytes),
		"attributes": map[string]string{
			"amount_ada":     fmt.Sprintf("%d.%06d", donation.AmountLovelace/lovelacePerADA, donation.AmountLovelace%lovelacePerADA),
			"category":       util.TruncateUTF8Bytes(project.Category, maxMetaStringBytes),
			"date":           donation.CreatedAt.UTC().Format(time.RFC3339),
			"receipt_number": key.ReceiptNumber,
		},
		"payment_tx": util.ChunkUTF8Bytes(donation.TransactionHash, maxMetaStringBytes),
	}

	metadata := map[string]interface{}{
		"721": map[string]interface{}{
			s.config.PolicyID: map[string]interface{}{
				key.AssetName: asset,
			},
		},
	}

	blob, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// archiveMetadata 归档最终元数据供审计，失败仅记录日志
func (s *MinterService) archiveMetadata(outcome *MintOutcome) {
	if s.archive == nil {
		return
	}
	path := fmt.Sprintf("nft-metadata/%s.json", outcome.AssetName)
	if _, err := s.archive.Save(path, []byte(outcome.MetadataJSON)); err != nil {
		util.Logger.Error("归档NFT元数据失败",
			zap.Error(err),
			zap.String("asset_name", outcome.AssetName))
	}
}
