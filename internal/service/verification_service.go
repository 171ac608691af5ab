package service

import (
	"context"
	"errors"
	"fmt"

	"eduverse-backend/internal/blockchain"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"go.uber.org/zap"
)

// 验证结果状态
const (
	VerificationPending   = "pending"
	VerificationConfirmed = "confirmed"
	VerificationFailed    = "failed"
)

// VerificationResult 链上支付验证结果
type VerificationResult struct {
	Verified      bool   `json:"verified"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	BlockHeight   *int64 `json:"block_height,omitempty"`
	Confirmations int    `json:"confirmations"`
}

// VerificationService 在捐赠被当作真实资金之前确认链上支付确实到账。
// 只读操作，不产生任何副作用。
type VerificationService struct {
	provider blockchain.Provider
}

func NewVerificationService(provider blockchain.Provider) *VerificationService {
	return &VerificationService{provider: provider}
}

// VerifyPayment 按哈希验证一笔支付。
// 交易未进块返回 pending（调用方稍后重试，不是错误）；
// 金额不足或收款地址缺失是终态失败，不应重试；
// 提供者故障以瞬时错误返回，与验证失败严格区分。
func (s *VerificationService) VerifyPayment(ctx context.Context, txHash string, expectedAmount int64, recipientAddress string) (*VerificationResult, error) {
	util.Logger.Info("开始验证链上支付",
		zap.String("tx_hash", txHash),
		zap.Int64("expected_amount", expectedAmount))

	tx, err := s.provider.GetTransaction(ctx, txHash)
	if err != nil {
		if errors.Is(err, blockchain.ErrTxNotFound) {
			// 交易还未被提供者索引，视为待确认
			return &VerificationResult{
				Verified: false,
				Status:   VerificationPending,
				Message:  "transaction not yet visible on chain",
			}, nil
		}
		util.Logger.Error("查询交易失败", zap.Error(err), zap.String("tx_hash", txHash))
		return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, "查询链上交易失败", err)
	}

	// 没有所属区块的交易仍在内存池中
	if tx.BlockHeight == nil {
		return &VerificationResult{
			Verified: false,
			Status:   VerificationPending,
			Message:  "transaction not yet included in a block",
		}, nil
	}

	var credited int64
	recipientFound := false
	for _, out := range tx.Outputs {
		if out.Address == recipientAddress {
			recipientFound = true
			credited += out.AmountLovelace
		}
	}

	if !recipientFound {
		util.Logger.Warn("收款地址不在交易输出中",
			zap.String("tx_hash", txHash),
			zap.String("recipient", recipientAddress))
		return &VerificationResult{
			Verified:    false,
			Status:      VerificationFailed,
			Message:     "recipient address not found in transaction outputs",
			BlockHeight: tx.BlockHeight,
		}, nil
	}

	if credited < expectedAmount {
		util.Logger.Warn("到账金额不足",
			zap.String("tx_hash", txHash),
			zap.Int64("expected", expectedAmount),
			zap.Int64("credited", credited))
		return &VerificationResult{
			Verified:    false,
			Status:      VerificationFailed,
			Message:     fmt.Sprintf("amount mismatch: expected %d lovelace, credited %d", expectedAmount, credited),
			BlockHeight: tx.BlockHeight,
		}, nil
	}

	util.Logger.Info("链上支付验证通过",
		zap.String("tx_hash", txHash),
		zap.Int64p("block_height", tx.BlockHeight))

	return &VerificationResult{
		Verified:      true,
		Status:        VerificationConfirmed,
		Message:       "payment confirmed on chain",
		BlockHeight:   tx.BlockHeight,
		Confirmations: 1,
	}, nil
}
