package donation

import (
	"net/http"
	"strconv"

	"eduverse-backend/internal/service"
	"eduverse-backend/internal/util"

	apperrors "eduverse-backend/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DonationHandler struct {
	donationService *service.DonationService
	fundingService  *service.FundingService
}

func NewDonationHandler(donationService *service.DonationService, fundingService *service.FundingService) *DonationHandler {
	return &DonationHandler{donationService, fundingService}
}

// CreateDonation 创建捐赠并尽力内联完成验证与铸造
func (h *DonationHandler) CreateDonation(c *gin.Context) {
	var input struct {
		DonorAddress    string `json:"donor_address" binding:"required"`
		DonorEmail      string `json:"donor_email"`
		ProjectID       int    `json:"project_id" binding:"required"`
		AmountLovelace  int64  `json:"amount_lovelace" binding:"required"`
		TransactionHash string `json:"transaction_hash" binding:"required,tx_hash"`
		Message         string `json:"message" binding:"max=500"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		util.Logger.Error("无效的捐赠请求数据", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid input data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := c.Get("user_id")

	donation, err := h.donationService.CreateDonation(service.CreateDonationInput{
		DonorID:         userID.(int),
		DonorAddress:    input.DonorAddress,
		DonorEmail:      input.DonorEmail,
		ProjectID:       input.ProjectID,
		AmountLovelace:  input.AmountLovelace,
		TransactionHash: input.TransactionHash,
		Message:         input.Message,
	})
	if err != nil {
		util.Logger.Error("创建捐赠失败", zap.Error(err))
		apperrors.HandleError(c, err)
		return
	}

	util.Logger.Info("捐赠记录已创建",
		zap.Int("donation_id", donation.ID),
		zap.Int("project_id", donation.ProjectID))

	// 尽力内联完成验证、确认与铸造；失败不影响已创建的 pending 记录
	outcome, confirmErr := h.donationService.ConfirmDonation(c.Request.Context(), donation.ID, "")
	if confirmErr != nil {
		util.Logger.Warn("内联确认未完成，捐赠保持 pending",
			zap.Error(confirmErr),
			zap.Int("donation_id", donation.ID))
		c.JSON(http.StatusCreated, gin.H{
			"code":    201,
			"data":    gin.H{"donation": donation},
			"message": "Donation created; verification pending",
		})
		return
	}

	if outcome.NFT != nil {
		h.donationService.NotifyReceipt(input.DonorEmail, outcome.Donation, outcome.NFT)
	}

	c.JSON(http.StatusCreated, gin.H{
		"code": 201,
		"data": gin.H{
			"donation":     outcome.Donation,
			"verification": outcome.Verification,
			"nft":          outcome.NFT,
			"project":      outcome.Project,
		},
		"message": "Donation processed successfully",
	})
}

// ConfirmDonation 验证链上支付并确认捐赠
func (h *DonationHandler) ConfirmDonation(c *gin.Context) {
	donationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid donation ID",
		})
		return
	}

	var input struct {
		TxHash string `json:"tx_hash" binding:"omitempty,tx_hash"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid input data",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.donationService.ConfirmDonation(c.Request.Context(), donationID, input.TxHash)
	if err != nil {
		util.Logger.Error("确认捐赠失败", zap.Error(err), zap.Int("donation_id", donationID))
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"donation":     outcome.Donation,
			"verification": outcome.Verification,
			"nft":          outcome.NFT,
			"project":      outcome.Project,
		},
		"message": "Donation confirmation processed",
	})
}

// MintNFT 手动为已确认的捐赠重试铸造
func (h *DonationHandler) MintNFT(c *gin.Context) {
	donationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid donation ID",
		})
		return
	}

	donation, nft, err := h.donationService.AttemptMint(c.Request.Context(), donationID)
	if err != nil {
		util.Logger.Error("手动铸造失败", zap.Error(err), zap.Int("donation_id", donationID))
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"donation": donation,
			"nft":      nft,
		},
		"message": "NFT minted successfully",
	})
}

// GetDonation 查询单笔捐赠
func (h *DonationHandler) GetDonation(c *gin.Context) {
	donationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid donation ID",
		})
		return
	}

	donation, nft, err := h.donationService.GetDonation(donationID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"donation": donation,
			"nft":      nft,
		},
	})
}

// GetLeaderboard 捐赠排行榜
func (h *DonationHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.donationService.Leaderboard(limit)
	if err != nil {
		util.Logger.Error("查询排行榜失败", zap.Error(err))
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"leaderboard": entries},
	})
}

// ListMyDonations 查询当前用户的捐赠记录
func (h *DonationHandler) ListMyDonations(c *gin.Context) {
	userID, _ := c.Get("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	donations, err := h.donationService.ListDonorDonations(userID.(int), page, pageSize)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"donations": donations},
	})
}

// ListProjectDonations 查询项目最近的已确认捐赠
func (h *DonationHandler) ListProjectDonations(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid project ID",
		})
		return
	}

	// 确保项目存在
	if _, err := h.fundingService.GetProject(projectID); err != nil {
		apperrors.HandleError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	donations, err := h.donationService.ListProjectDonations(projectID, limit)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"donations": donations},
	})
}
