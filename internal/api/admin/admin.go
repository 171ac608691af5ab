package admin

import (
	"net/http"

	"eduverse-backend/internal/service"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	donationService *service.DonationService
	statsService    *service.StatsService
}

func NewAdminHandler(donationService *service.DonationService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{donationService, statsService}
}

// GetStuckDonations 列出铸造重试耗尽、等待人工处理的捐赠。
// 这些捐赠已确认且资金已入账，只缺收据 NFT。
func (h *AdminHandler) GetStuckDonations(c *gin.Context) {
	stuck, err := h.donationService.ListStuckDonations()
	if err != nil {
		util.Logger.Error("查询滞留捐赠失败", zap.Error(err))
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"donations": stuck,
			"count":     len(stuck),
		},
	})
}

// GetSystemStats 系统统计
func (h *AdminHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.statsService.GetSystemStats()
	if err != nil {
		util.Logger.Error("获取系统统计失败", zap.Error(err))
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": stats,
	})
}
