package interfaces

import "eduverse-backend/internal/model"

type NFTRepository interface {
	Create(nft *model.NFT) error
	MarkMinted(donationID int, txHash string) error
	GetByDonationID(donationID int) (*model.NFT, error)
	GetByAssetID(assetID string) (*model.NFT, error)
	CountMinted() (int, error)
}
