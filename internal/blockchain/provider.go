package blockchain

import "context"

// TxOutput 交易输出
type TxOutput struct {
	Address        string `json:"address"`
	AmountLovelace int64  `json:"amount_lovelace"`
}

// Transaction 链上交易。BlockHeight 为 nil 表示交易尚未进块。
type Transaction struct {
	Hash        string     `json:"hash"`
	BlockHash   string     `json:"block_hash,omitempty"`
	BlockHeight *int64     `json:"block_height,omitempty"`
	Outputs     []TxOutput `json:"outputs"`
}

// MintRequest 铸造交易请求
type MintRequest struct {
	PolicyID     string
	AssetName    string
	MetadataJSON string // CIP-25 格式元数据
	OwnerAddress string
}

// MintResult 铸造交易提交结果
type MintResult struct {
	TxHash        string
	AssetID       string
	AlreadyExists bool // 资产已存在于链上（幂等重试时出现），调用方应视为成功
}

// Provider 抽象外部账本提供者。所有方法都是对远端的异步 I/O，
// 调用方不得在调用期间持有进程内锁。
type Provider interface {
	// Initialize 建立与提供者的连接并校验凭据
	Initialize(ctx context.Context) error
	// IsReady 报告提供者是否可用
	IsReady() bool
	// GetTransaction 按哈希查询交易；交易不存在返回 ErrTxNotFound
	GetTransaction(ctx context.Context, txHash string) (*Transaction, error)
	// VerifyAddress 校验地址在当前网络是否合法
	VerifyAddress(ctx context.Context, address string) (bool, error)
	// SubmitMintTransaction 提交铸造交易
	SubmitMintTransaction(ctx context.Context, req MintRequest) (*MintResult, error)
	// GetCurrentSlot 查询当前槽位，用于判断铸造策略窗口是否已过期
	GetCurrentSlot(ctx context.Context) (int64, error)
}
