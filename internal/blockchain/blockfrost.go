package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"go.uber.org/zap"
)

// ErrTxNotFound 交易在链上不存在（或尚未被提供者索引）
var ErrTxNotFound = errors.New("transaction not found")

// BlockfrostProvider 通过 Blockfrost 风格的 HTTP 网关访问 Cardano 链
type BlockfrostProvider struct {
	baseURL   string
	projectID string
	client    *http.Client
	ready     bool
}

// NewBlockfrostProvider 创建区块链提供者实例
func NewBlockfrostProvider(baseURL, projectID string, timeout time.Duration) *BlockfrostProvider {
	return &BlockfrostProvider{
		baseURL:   baseURL,
		projectID: projectID,
		client:    &http.Client{Timeout: timeout},
	}
}

// Initialize 校验凭据并探测网关健康状态
func (p *BlockfrostProvider) Initialize(ctx context.Context) error {
	var health struct {
		IsHealthy bool `json:"is_healthy"`
	}
	if err := p.get(ctx, "/health", &health); err != nil {
		return fmt.Errorf("区块链提供者初始化失败: %w", err)
	}
	if !health.IsHealthy {
		return errors.New("区块链提供者报告不健康")
	}
	p.ready = true
	util.Logger.Info("区块链提供者初始化成功", zap.String("base_url", p.baseURL))
	return nil
}

func (p *BlockfrostProvider) IsReady() bool {
	return p.ready
}

// blockfrostTx Blockfrost 交易响应（只取需要的字段）
type blockfrostTx struct {
	Hash        string `json:"hash"`
	Block       string `json:"block"`
	BlockHeight *int64 `json:"block_height"`
}

type blockfrostAmount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type blockfrostUTXOs struct {
	Outputs []struct {
		Address string             `json:"address"`
		Amount  []blockfrostAmount `json:"amount"`
	} `json:"outputs"`
}

// GetTransaction 查询交易及其输出
func (p *BlockfrostProvider) GetTransaction(ctx context.Context, txHash string) (*Transaction, error) {
	var tx blockfrostTx
	if err := p.get(ctx, "/txs/"+txHash, &tx); err != nil {
		return nil, err
	}

	result := &Transaction{
		Hash:        tx.Hash,
		BlockHash:   tx.Block,
		BlockHeight: tx.BlockHeight,
	}

	// 未进块的交易没有 UTXO 可查
	if tx.BlockHeight == nil {
		return result, nil
	}

	var utxos blockfrostUTXOs
	if err := p.get(ctx, "/txs/"+txHash+"/utxos", &utxos); err != nil {
		return nil, err
	}

	for _, out := range utxos.Outputs {
		var lovelace int64
		for _, amount := range out.Amount {
			if amount.Unit == "lovelace" {
				v, err := strconv.ParseInt(amount.Quantity, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("解析输出金额失败: %w", err)
				}
				lovelace = v
			}
		}
		result.Outputs = append(result.Outputs, TxOutput{
			Address:        out.Address,
			AmountLovelace: lovelace,
		})
	}

	return result, nil
}

// VerifyAddress 通过查询地址信息判断地址是否合法
func (p *BlockfrostProvider) VerifyAddress(ctx context.Context, address string) (bool, error) {
	var info struct {
		Address string `json:"address"`
	}
	err := p.get(ctx, "/addresses/"+address, &info)
	if err != nil {
		if errors.Is(err, ErrTxNotFound) {
			return false, nil
		}
		return false, err
	}
	return info.Address != "", nil
}

// GetCurrentSlot 查询最新区块的槽位
func (p *BlockfrostProvider) GetCurrentSlot(ctx context.Context) (int64, error) {
	var block struct {
		Slot int64 `json:"slot"`
	}
	if err := p.get(ctx, "/blocks/latest", &block); err != nil {
		return 0, err
	}
	return block.Slot, nil
}

// SubmitMintTransaction 向铸造网关提交铸造交易。
// 网关返回 409 表示该资产已经存在，幂等重试时视为成功。
func (p *BlockfrostProvider) SubmitMintTransaction(ctx context.Context, req MintRequest) (*MintResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"policy_id":  req.PolicyID,
		"asset_name": req.AssetName,
		"metadata":   json.RawMessage(req.MetadataJSON),
		"owner":      req.OwnerAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化铸造请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/mint", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("project_id", p.projectID)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, "铸造交易提交失败", err)
	}
	defer resp.Body.Close()

	assetID := req.PolicyID + hexEncode(req.AssetName)

	switch {
	case resp.StatusCode == http.StatusConflict:
		// 资产已存在，之前的铸造已经成功
		return &MintResult{AssetID: assetID, AlreadyExists: true}, nil
	case resp.StatusCode >= 500:
		return nil, apperrors.New(apperrors.ErrProviderUnavailable, fmt.Sprintf("铸造网关错误: %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, apperrors.New(apperrors.ErrMintFailed, fmt.Sprintf("铸造请求被拒绝: %d", resp.StatusCode))
	}

	var result struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, "解析铸造响应失败", err)
	}

	return &MintResult{
		TxHash:  result.TxHash,
		AssetID: assetID,
	}, nil
}

func (p *BlockfrostProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("project_id", p.projectID)

	resp, err := p.client.Do(req)
	if err != nil {
		// 网络故障和超时都是瞬时错误，调用方可以重试
		return apperrors.Wrap(apperrors.ErrProviderUnavailable, "区块链提供者请求失败", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrTxNotFound
	case resp.StatusCode >= 500:
		return apperrors.New(apperrors.ErrProviderUnavailable, fmt.Sprintf("区块链提供者错误: %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("区块链提供者请求被拒绝: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func hexEncode(s string) string {
	return fmt.Sprintf("%x", s)
}
