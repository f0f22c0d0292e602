package repository

import (
	"context"
	"errors"

	"carbid/internal/model"

	"gorm.io/gorm"
)

var ErrAuctionNotFound = errors.New("auction not found")

// AuctionRepository reads the auction catalog maintained by the crawler.
type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) GetByAuctionNo(ctx context.Context, auctionNo string) (*model.Auction, error) {
	var auction model.Auction
	err := r.db.WithContext(ctx).Where("auction_no = ?", auctionNo).First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}
