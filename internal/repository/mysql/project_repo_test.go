package mysql

import (
	"errors"
	"testing"
	"time"

	"eduverse-backend/internal/model"
	"eduverse-backend/internal/repository/interfaces"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

// applyDonationPattern 校验入账语句的关键语义：
// status 的 CASE 重算必须出现在 current_funding_lovelace 赋值之前
// （MySQL 的 SET 子句从左到右求值），累加必须被 LEAST 截断到目标值，
// 且整条更新以 active/funded 状态为守卫。
const applyDonationPattern = `(?s)UPDATE projects\s+SET status = CASE.*` +
	`current_funding_lovelace = LEAST\(current_funding_lovelace \+ \?, funding_goal_lovelace\).*` +
	`backers_count = backers_count \+ 1.*` +
	`WHERE id = \? AND status IN \('active', 'funded'\)`

func projectRows(currentFunding int64, status string, backers int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "title", "creator_id", "category", "funding_goal_lovelace",
		"current_funding_lovelace", "backers_count", "deadline", "status",
		"created_at", "updated_at",
	}).AddRow(7, "Quantum Error Correction", 3, "physics", int64(5_000_000),
		currentFunding, backers, now.Add(24*time.Hour), status, now, now)
}

// TestApplyDonationClampsToGoalAndMarksFunded 测试 4/5 ADA 的项目入账 2 ADA：
// 总额截断到 5 ADA，状态推进为 funded
func TestApplyDonationClampsToGoalAndMarksFunded(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(applyDonationPattern).
		WithArgs(int64(2_000_000), int64(2_000_000), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)SELECT id, title, creator_id,.*FROM projects WHERE id = \?`).
		WithArgs(7).
		WillReturnRows(projectRows(5_000_000, "funded", 3))

	repo := NewProjectRepository(db)
	project, err := repo.ApplyDonation(7, 2_000_000)
	assert.NoError(t, err)
	assert.Equal(t, int64(5_000_000), project.CurrentFundingLovelace)
	assert.Equal(t, model.ProjectStatusFunded, project.Status)
	assert.True(t, project.IsFunded())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestApplyDonationNotAcceptingGuard 测试守卫未命中返回业务哨兵错误而非静默成功
func TestApplyDonationNotAcceptingGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(applyDonationPattern).
		WithArgs(int64(2_000_000), int64(2_000_000), 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewProjectRepository(db)
	project, err := repo.ApplyDonation(9, 2_000_000)
	assert.Nil(t, project)
	assert.True(t, errors.Is(err, interfaces.ErrProjectNotAccepting))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestExpireOverdue 测试过期扫描只影响 active 项目并返回影响行数
func TestExpireOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE projects\s+SET status = \?.*WHERE status = \? AND deadline <= NOW\(\)`).
		WithArgs(string(model.ProjectStatusExpired), string(model.ProjectStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewProjectRepository(db)
	count, err := repo.ExpireOverdue()
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
