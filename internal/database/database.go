package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"coinsight/internal/models"
)

func Initialize(databaseURL string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool parameters
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.Coin{},
		&models.PricePoint{},
		&models.BetaCache{},
		&models.BenchmarkSnapshot{},
		&models.AnalysisRecord{},
		&models.Portfolio{},
		&models.Transaction{},
	); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}

	if err := ensureSnapshotEstimatedColumn(db, logger); err != nil {
		logger.Warn("migration warning", zap.Error(err))
	}

	logger.Info("database initialized")
	return db, nil
}

// ensureSnapshotEstimatedColumn backfills the estimated flag on benchmark
// snapshot rows created before the column existed.
func ensureSnapshotEstimatedColumn(db *gorm.DB, logger *zap.Logger) error {
	if db.Migrator().HasColumn(&models.BenchmarkSnapshot{}, "estimated") {
		return nil
	}
	if err := db.Migrator().AddColumn(&models.BenchmarkSnapshot{}, "Estimated"); err != nil {
		return fmt.Errorf("failed adding estimated column: %w", err)
	}
	logger.Info("added column estimated to benchmark_snapshots")
	return nil
}
