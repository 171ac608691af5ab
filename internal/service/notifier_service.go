package service

import (
	"fmt"

	"eduverse-backend/config"
	"eduverse-backend/internal/model"
	"eduverse-backend/internal/util"

	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

// ReceiptNotifier 铸造完成后尽力发送收据通知，失败不影响捐赠状态
type ReceiptNotifier interface {
	SendReceipt(email string, donation *model.Donation, nft *model.NFT)
}

// EmailNotifier 通过外部 SMTP 网关发送收据邮件
type EmailNotifier struct {
	smtpHost string
	smtpPort int
	username string
	password string
}

func NewEmailNotifier() *EmailNotifier {
	return &EmailNotifier{
		smtpHost: config.AppConfig.SMTPHost,
		smtpPort: config.AppConfig.SMTPPort,
		username: config.AppConfig.SMTPUsername,
		password: config.AppConfig.SMTPPassword,
	}
}

// SendReceipt 异步发送收据邮件，错误只记录日志
func (n *EmailNotifier) SendReceipt(email string, donation *model.Donation, nft *model.NFT) {
	if email == "" {
		return
	}

	subject := "您的捐赠收据 NFT 已铸造"
	body := fmt.Sprintf(
		"感谢您的捐赠！\n\n捐赠金额：%d lovelace\n支付交易：%s\nNFT 资产：%s\n铸造交易：%s\n\n您可以在钱包中查看这枚收据 NFT。",
		donation.AmountLovelace, donation.TransactionHash, nft.AssetID, nft.TxHash)

	go func() {
		m := mail.NewMessage()
		m.SetHeader("From", n.username)
		m.SetHeader("To", email)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", body)

		d := mail.NewDialer(n.smtpHost, n.smtpPort, n.username, n.password)
		if err := d.DialAndSend(m); err != nil {
			util.Logger.Error("异步发送收据邮件失败",
				zap.Error(err),
				zap.String("to", email),
				zap.Int("donation_id", donation.ID))
			return
		}
		util.Logger.Info("收据邮件发送成功",
			zap.String("to", email),
			zap.Int("donation_id", donation.ID))
	}()
}

// NopNotifier 测试用的空通知器
type NopNotifier struct{}

func (NopNotifier) SendReceipt(string, *model.Donation, *model.NFT) {}
