package mysql

import (
	"database/sql"
	"time"

	"eduverse-backend/internal/model"
	"eduverse-backend/internal/util"

	"go.uber.org/zap"
)

type DonationRepository struct {
	db *sql.DB
}

func NewDonationRepository(db *sql.DB) *DonationRepository {
	return &DonationRepository{db}
}

const donationColumns = `id, donor_id, donor_address, project_id, amount_lovelace, transaction_hash,
	status, block_height, nft_asset_id, nft_policy_id, nft_metadata, message, mint_attempts,
	created_at, confirmed_at, nft_minted_at`

func (r *DonationRepository) Create(donation *model.Donation) error {
	util.Logger.Info("开始创建捐赠记录",
		zap.Int("donor_id", donation.DonorID),
		zap.Int("project_id", donation.ProjectID),
		zap.Int64("amount_lovelace", donation.AmountLovelace),
		zap.String("tx_hash", donation.TransactionHash))

	donation.CreatedAt = time.Now()

	query := `INSERT INTO donations
		(donor_id, donor_address, project_id, amount_lovelace, transaction_hash, status, message, mint_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`

	result, err := r.db.Exec(query,
		donation.DonorID,
		donation.DonorAddress,
		donation.ProjectID,
		donation.AmountLovelace,
		donation.TransactionHash,
		donation.Status,
		donation.Message,
		donation.CreatedAt)
	if err != nil {
		util.Logger.Error("创建捐赠记录失败", zap.Error(err))
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		util.Logger.Error("获取捐赠记录ID失败", zap.Error(err))
		return err
	}

	donation.ID = int(id)
	util.Logger.Info("捐赠记录创建成功", zap.Int("donation_id", donation.ID))
	return nil
}

func (r *DonationRepository) GetByID(id int) (*model.Donation, error) {
	row := r.db.QueryRow(`SELECT `+donationColumns+` FROM donations WHERE id = ?`, id)
	return scanDonation(row)
}

func (r *DonationRepository) GetByTxHash(txHash string) (*model.Donation, error) {
	row := r.db.QueryRow(`SELECT `+donationColumns+` FROM donations WHERE transaction_hash = ?`, txHash)
	return scanDonation(row)
}

// ConfirmWherePending 以当前状态为守卫的条件更新，防止并发的重复确认
func (r *DonationRepository) ConfirmWherePending(id int, blockHeight int64, confirmedAt time.Time) (bool, error) {
	query := `UPDATE donations
		SET status = ?, block_height = ?, confirmed_at = ?
		WHERE id = ? AND status = ?`

	result, err := r.db.Exec(query,
		model.DonationStatusConfirmed, blockHeight, confirmedAt,
		id, model.DonationStatusPending)
	if err != nil {
		util.Logger.Error("确认捐赠失败", zap.Error(err), zap.Int("donation_id", id))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		util.Logger.Warn("确认捐赠的状态守卫未命中",
			zap.Int("donation_id", id))
		return false, nil
	}

	util.Logger.Info("捐赠已确认",
		zap.Int("donation_id", id),
		zap.Int64("block_height", blockHeight))
	return true, nil
}

// MarkMintedWhereConfirmed 仅当状态为 confirmed 且资产字段为空时写入铸造结果
func (r *DonationRepository) MarkMintedWhereConfirmed(id int, assetID, policyID, metadata string, mintedAt time.Time) (bool, error) {
	query := `UPDATE donations
		SET status = ?, nft_asset_id = ?, nft_policy_id = ?, nft_metadata = ?, nft_minted_at = ?
		WHERE id = ? AND status = ? AND nft_asset_id IS NULL`

	result, err := r.db.Exec(query,
		model.DonationStatusNFTMinted, assetID, policyID, metadata, mintedAt,
		id, model.DonationStatusConfirmed)
	if err != nil {
		util.Logger.Error("写入铸造结果失败", zap.Error(err), zap.Int("donation_id", id))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	util.Logger.Info("捐赠已进入 nft_minted 状态",
		zap.Int("donation_id", id),
		zap.String("asset_id", assetID))
	return true, nil
}

func (r *DonationRepository) IncrementMintAttempts(id int) error {
	_, err := r.db.Exec(`UPDATE donations SET mint_attempts = mint_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		util.Logger.Error("累加铸造尝试次数失败", zap.Error(err), zap.Int("donation_id", id))
	}
	return err
}

func (r *DonationRepository) ListByDonor(donorID, page, pageSize int) ([]*model.Donation, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.Query(`SELECT `+donationColumns+` FROM donations
		WHERE donor_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		donorID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDonations(rows)
}

func (r *DonationRepository) ListRecentByProject(projectID, limit int) ([]*model.Donation, error) {
	rows, err := r.db.Query(`SELECT `+donationColumns+` FROM donations
		WHERE project_id = ? AND status IN (?, ?)
		ORDER BY confirmed_at DESC LIMIT ?`,
		projectID, model.DonationStatusConfirmed, model.DonationStatusNFTMinted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDonations(rows)
}

// ListStuck 已确认但铸造重试耗尽的捐赠，等待运维处理
func (r *DonationRepository) ListStuck(maxAttempts int) ([]*model.Donation, error) {
	rows, err := r.db.Query(`SELECT `+donationColumns+` FROM donations
		WHERE status = ? AND nft_asset_id IS NULL AND mint_attempts >= ?
		ORDER BY confirmed_at ASC`,
		model.DonationStatusConfirmed, maxAttempts)
	if err != nil {
		util.Logger.Error("查询滞留捐赠失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	return scanDonations(rows)
}

func (r *DonationRepository) ListRetryable(maxAttempts, limit int) ([]*model.Donation, error) {
	rows, err := r.db.Query(`SELECT `+donationColumns+` FROM donations
		WHERE status = ? AND nft_asset_id IS NULL AND mint_attempts < ?
		ORDER BY confirmed_at ASC LIMIT ?`,
		model.DonationStatusConfirmed, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDonations(rows)
}

func (r *DonationRepository) Leaderboard(limit int) ([]*model.LeaderboardEntry, error) {
	rows, err := r.db.Query(`SELECT donor_id, SUM(amount_lovelace) AS total, COUNT(*) AS cnt
		FROM donations
		WHERE status IN (?, ?)
		GROUP BY donor_id
		ORDER BY total DESC
		LIMIT ?`,
		model.DonationStatusConfirmed, model.DonationStatusNFTMinted, limit)
	if err != nil {
		util.Logger.Error("查询排行榜失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		entry := &model.LeaderboardEntry{}
		if err := rows.Scan(&entry.DonorID, &entry.TotalLovelace, &entry.DonationCount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *DonationRepository) CountByStatus(status model.DonationStatus) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM donations WHERE status = ?`, status).Scan(&count)
	return count, err
}

func (r *DonationRepository) TotalConfirmedLovelace() (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRow(`SELECT SUM(amount_lovelace) FROM donations WHERE status IN (?, ?)`,
		model.DonationStatusConfirmed, model.DonationStatusNFTMinted).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonation(row rowScanner) (*model.Donation, error) {
	donation := &model.Donation{}
	var (
		blockHeight sql.NullInt64
		assetID     sql.NullString
		policyID    sql.NullString
		metadata    sql.NullString
		message     sql.NullString
		confirmedAt sql.NullTime
		mintedAt    sql.NullTime
	)

	err := row.Scan(
		&donation.ID,
		&donation.DonorID,
		&donation.DonorAddress,
		&donation.ProjectID,
		&donation.AmountLovelace,
		&donation.TransactionHash,
		&donation.Status,
		&blockHeight,
		&assetID,
		&policyID,
		&metadata,
		&message,
		&donation.MintAttempts,
		&donation.CreatedAt,
		&confirmedAt,
		&mintedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if blockHeight.Valid {
		donation.BlockHeight = &blockHeight.Int64
	}
	if assetID.Valid {
		donation.NFTAssetID = &assetID.String
	}
	if policyID.Valid {
		donation.NFTPolicyID = &policyID.String
	}
	if metadata.Valid {
		donation.NFTMetadata = &metadata.String
	}
	if message.Valid {
		donation.Message = message.String
	}
	if confirmedAt.Valid {
		donation.ConfirmedAt = &confirmedAt.Time
	}
	if mintedAt.Valid {
		donation.NFTMintedAt = &mintedAt.Time
	}
	return donation, nil
}

func scanDonations(rows *sql.Rows) ([]*model.Donation, error) {
	var donations []*model.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, donation)
	}
	return donations, rows.Err()
}
