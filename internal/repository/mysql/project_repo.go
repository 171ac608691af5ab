package mysql

import (
	"database/sql"
	"fmt"

	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"
	"eduverse-backend/internal/util"

	"go.uber.org/zap"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db}
}

func (r *ProjectRepository) GetByID(id int) (*model.Project, error) {
	project := &model.Project{}
	err := r.db.QueryRow(`SELECT id, title, creator_id, category, funding_goal_lovelace,
		current_funding_lovelace, backers_count, deadline, status, created_at, updated_at
		FROM projects WHERE id = ?`, id).Scan(
		&project.ID,
		&project.Title,
		&project.CreatorID,
		&project.Category,
		&project.FundingGoalLovelace,
		&project.CurrentFundingLovelace,
		&project.BackersCount,
		&project.Deadline,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("查询项目失败", zap.Error(err), zap.Int("project_id", id))
		return nil, err
	}
	return project, nil
}

// ApplyDonation 单条条件更新完成入账，避免读-改-写造成的并发丢失更新。
// MySQL 的 SET 子句从左到右求值，后面的赋值能看到前面赋值后的新值，
// 所以 status 必须在 current_funding_lovelace 之前基于原值重算。
func (r *ProjectRepository) ApplyDonation(projectID int, amountLovelace int64) (*model.Project, error) {
	util.Logger.Info("开始项目入账",
		zap.Int("project_id", projectID),
		zap.Int64("amount_lovelace", amountLovelace))

	query := `UPDATE projects
		SET status = CASE
				WHEN LEAST(current_funding_lovelace + ?, funding_goal_lovelace) >= funding_goal_lovelace THEN 'funded'
				WHEN status = 'active' AND deadline <= NOW() THEN 'expired'
				ELSE status
			END,
			current_funding_lovelace = LEAST(current_funding_lovelace + ?, funding_goal_lovelace),
			backers_count = backers_count + 1,
			updated_at = NOW()
		WHERE id = ? AND status IN ('active', 'funded')`

	result, err := r.db.Exec(query, amountLovelace, amountLovelace, projectID)
	if err != nil {
		util.Logger.Error("项目入账失败", zap.Error(err), zap.Int("project_id", projectID))
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("project %d: %w", projectID, interfaces.ErrProjectNotAccepting)
	}

	project, err := r.GetByID(projectID)
	if err != nil {
		return nil, err
	}

	util.Logger.Info("项目入账完成",
		zap.Int("project_id", projectID),
		zap.Int64("current_funding", project.CurrentFundingLovelace),
		zap.String("status", string(project.Status)))
	return project, nil
}

// ExpireOverdue 将所有已过截止日期的 active 项目置为 expired
func (r *ProjectRepository) ExpireOverdue() (int, error) {
	result, err := r.db.Exec(`UPDATE projects
		SET status = ?, updated_at = NOW()
		WHERE status = ? AND deadline <= NOW()`,
		model.ProjectStatusExpired, model.ProjectStatusActive)
	if err != nil {
		util.Logger.Error("更新过期项目失败", zap.Error(err))
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		util.Logger.Info("过期项目已更新", zap.Int64("count", affected))
	}
	return int(affected), nil
}

func (r *ProjectRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

func (r *ProjectRepository) CountByStatus(status model.ProjectStatus) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE status = ?`, status).Scan(&count)
	return count, err
}
