package blockchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	apperrors "eduverse-backend/internal/errors"
)

// FakeProvider 测试用的内存账本提供者。交易由测试预先写入，
// 铸造交易哈希由请求内容哈希派生，保证确定性。
type FakeProvider struct {
	mu           sync.Mutex
	transactions map[string]*Transaction
	mintedAssets map[string]bool
	CurrentSlot  int64
	FailMints    int // 前 N 次铸造返回瞬时错误
	MintCalls    int
	Unavailable  bool // 模拟提供者整体不可用
	ready        bool
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		transactions: make(map[string]*Transaction),
		mintedAssets: make(map[string]bool),
	}
}

// AddTransaction 预置一笔链上交易
func (p *FakeProvider) AddTransaction(tx *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions[tx.Hash] = tx
}

func (p *FakeProvider) Initialize(_ context.Context) error {
	p.ready = true
	return nil
}

func (p *FakeProvider) IsReady() bool {
	return p.ready
}

func (p *FakeProvider) GetTransaction(_ context.Context, txHash string) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return nil, apperrors.New(apperrors.ErrProviderUnavailable, "provider unavailable")
	}
	tx, ok := p.transactions[txHash]
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

func (p *FakeProvider) VerifyAddress(_ context.Context, address string) (bool, error) {
	return address != "", nil
}

func (p *FakeProvider) GetCurrentSlot(_ context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Unavailable {
		return 0, apperrors.New(apperrors.ErrProviderUnavailable, "provider unavailable")
	}
	return p.CurrentSlot, nil
}

func (p *FakeProvider) SubmitMintTransaction(_ context.Context, req MintRequest) (*MintResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.MintCalls++
	if p.Unavailable {
		return nil, apperrors.New(apperrors.ErrProviderUnavailable, "provider unavailable")
	}
	if p.FailMints > 0 {
		p.FailMints--
		return nil, apperrors.New(apperrors.ErrProviderUnavailable, "mint gateway timeout")
	}

	assetID := req.PolicyID + hexEncode(req.AssetName)
	if p.mintedAssets[assetID] {
		return &MintResult{AssetID: assetID, AlreadyExists: true}, nil
	}
	p.mintedAssets[assetID] = true

	sum := sha256.Sum256([]byte(req.PolicyID + req.AssetName + req.OwnerAddress))
	return &MintResult{
		TxHash:  hex.EncodeToString(sum[:]),
		AssetID: assetID,
	}, nil
}
