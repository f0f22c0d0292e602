package handler

import (
	"carbid/internal/config"
	"carbid/internal/infrastructure/lock"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter wires the HTTP surface.
func SetupRouter(db *gorm.DB, locker lock.Locker, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, locker, cfg)

	api := r.Group("/api/v1")
	{
		mockbid := api.Group("/mockbid")
		{
			mockbid.POST("/submit", h.SubmitBid)
			mockbid.GET("/list", h.ListUserBids)
			mockbid.GET("/auction", h.ListAuctionBids)
		}

		auction := api.Group("/auction")
		{
			auction.POST("/outcome", h.SubmitOutcome)
			auction.GET("/detail", h.GetAuction)
		}

		account := api.Group("/account")
		{
			account.GET("/balance", h.GetBalance)
			account.POST("/recharge", h.Recharge)
			account.GET("/changes", h.ListChanges)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
