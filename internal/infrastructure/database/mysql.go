package database

import (
	"fmt"
	"time"

	"carbid/internal/config"
	"carbid/internal/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitMySQL opens the MySQL connection pool and migrates the schema.
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("connect mysql: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("get underlying db: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	DB = db
	log.Info("mysql connected")
	return db
}

// Migrate creates or updates all tables owned by this service. The auction
// catalog table is shared with the crawler, which writes the same schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Auction{},
		&model.MockBid{},
		&model.AuctionOutcome{},
		&model.Account{},
		&model.BalanceChange{},
		&model.OutboxMessage{},
	)
}
