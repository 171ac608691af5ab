package mysql

import (
	"database/sql"
	"time"

	"eduverse-backend/internal/model"
	"eduverse-backend/internal/util"

	"go.uber.org/zap"
)

type NFTRepository struct {
	db *sql.DB
}

func NewNFTRepository(db *sql.DB) *NFTRepository {
	return &NFTRepository{db}
}

const nftColumns = `id, donation_id, asset_id, policy_id, asset_name, metadata, tx_hash,
	block_height, confirmations, status, owner_address, created_at, updated_at`

// Create 插入铸造记录，donation_id 唯一键冲突时走更新分支。
// 幂等重试中"资产已存在"的结果带着空的 tx_hash，已是 minted 的行
// 不能被它降级回 minting，也不能被空哈希覆盖。
func (r *NFTRepository) Create(nft *model.NFT) error {
	nft.CreatedAt = time.Now()
	nft.UpdatedAt = nft.CreatedAt

	query := `INSERT INTO nfts
		(donation_id, asset_id, policy_id, asset_name, metadata, tx_hash, confirmations, status, owner_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			tx_hash = IF(status = ? OR VALUES(tx_hash) = '', tx_hash, VALUES(tx_hash)),
			status = IF(status = ?, status, VALUES(status)),
			updated_at = VALUES(updated_at)`

	result, err := r.db.Exec(query,
		nft.DonationID,
		nft.AssetID,
		nft.PolicyID,
		nft.AssetName,
		nft.Metadata,
		nft.TxHash,
		nft.Confirmations,
		nft.Status,
		nft.OwnerAddress,
		nft.CreatedAt,
		nft.UpdatedAt,
		model.NFTStatusMinted,
		model.NFTStatusMinted)
	if err != nil {
		util.Logger.Error("创建NFT记录失败", zap.Error(err), zap.Int("donation_id", nft.DonationID))
		return err
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		nft.ID = int(id)
	}
	return nil
}

func (r *NFTRepository) MarkMinted(donationID int, txHash string) error {
	_, err := r.db.Exec(`UPDATE nfts
		SET status = ?, tx_hash = ?, confirmations = 1, updated_at = NOW()
		WHERE donation_id = ?`,
		model.NFTStatusMinted, txHash, donationID)
	if err != nil {
		util.Logger.Error("更新NFT为已铸造失败", zap.Error(err), zap.Int("donation_id", donationID))
	}
	return err
}

func (r *NFTRepository) GetByDonationID(donationID int) (*model.NFT, error) {
	row := r.db.QueryRow(`SELECT `+nftColumns+` FROM nfts WHERE donation_id = ?`, donationID)
	return scanNFT(row)
}

func (r *NFTRepository) GetByAssetID(assetID string) (*model.NFT, error) {
	row := r.db.QueryRow(`SELECT `+nftColumns+` FROM nfts WHERE asset_id = ?`, assetID)
	return scanNFT(row)
}

func (r *NFTRepository) CountMinted() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM nfts WHERE status = ?`, model.NFTStatusMinted).Scan(&count)
	return count, err
}

func scanNFT(row rowScanner) (*model.NFT, error) {
	nft := &model.NFT{}
	var blockHeight sql.NullInt64

	err := row.Scan(
		&nft.ID,
		&nft.DonationID,
		&nft.AssetID,
		&nft.PolicyID,
		&nft.AssetName,
		&nft.Metadata,
		&nft.TxHash,
		&blockHeight,
		&nft.Confirmations,
		&nft.Status,
		&nft.OwnerAddress,
		&nft.CreatedAt,
		&nft.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if blockHeight.Valid {
		nft.BlockHeight = &blockHeight.Int64
	}
	return nft, nil
}
