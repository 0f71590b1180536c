// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// gormLogger bridges gorm's logger.Interface onto zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{zapLogger: zapLogger, logLevel: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	next := *l
	next.logLevel = level
	return &next
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}
	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}
	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// postgresStorage implements storage.Storage on gorm/postgres.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage connects to postgres, retrying briefly so the platform can come
// up ahead of the database in a fresh deployment.
func NewStorage(ctx context.Context, dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLog := newGormLogger(zapLogger.Named("gorm"))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                                   gormLog,
			NowFunc:                                  func() time.Time { return time.Now().UTC() },
			DisableForeignKeyConstraintWhenMigrating: true,
			SkipDefaultTransaction:                   true,
		})
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(10),
		backoff.WithNotify(func(err error, d time.Duration) {
			zapLogger.Warn("Database connect retry", zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{db: db, logger: zapLogger}, nil
}

// RunMigrations applies the schema under an advisory lock so concurrent
// replicas do not race AutoMigrate.
func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(204)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(204)")

	if err := p.db.AutoMigrate(
		&models.TokenRecord{},
		&models.TradeRecord{},
		&models.GraduationRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *postgresStorage) SaveToken(ctx context.Context, rec *models.TokenRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

func (p *postgresStorage) SaveTrade(ctx context.Context, rec *models.TradeRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

// SaveGraduation upserts on the mint. During graduation the liquidity
// events can land before the graduation event itself, so the row may
// already exist carrying only LP fields.
func (p *postgresStorage) SaveGraduation(ctx context.Context, rec *models.GraduationRecord) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"final_supply", "snapshot_balance", "creator_share",
			"platform_share", "liquidity_amount", "graduated_at", "updated_at",
		}),
	}).Create(rec).Error
}

func (p *postgresStorage) UpdateGraduationSplit(ctx context.Context, mint string, creatorShare, platformShare uint64) error {
	tx := p.db.WithContext(ctx).Model(&models.GraduationRecord{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"creator_share":    creatorShare,
			"platform_share":   platformShare,
			"liquidity_amount": gorm.Expr("snapshot_balance - ? - ?", creatorShare, platformShare),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return p.db.WithContext(ctx).Create(&models.GraduationRecord{
			Mint:          mint,
			CreatorShare:  creatorShare,
			PlatformShare: platformShare,
		}).Error
	}
	return nil
}

func (p *postgresStorage) UpdateGraduationLiquidity(ctx context.Context, mint, lpToken string, lpLocked uint64) error {
	tx := p.db.WithContext(ctx).Model(&models.GraduationRecord{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"lp_token":  lpToken,
			"lp_locked": lpLocked,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return p.db.WithContext(ctx).Create(&models.GraduationRecord{
			Mint:     mint,
			LPToken:  lpToken,
			LPLocked: lpLocked,
		}).Error
	}
	return nil
}

func (p *postgresStorage) MarkLPWithdrawn(ctx context.Context, mint string) error {
	return p.db.WithContext(ctx).Model(&models.GraduationRecord{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"lp_withdrawn": true,
			"lp_locked":    0,
		}).Error
}

func (p *postgresStorage) ListTokens(ctx context.Context, limit, offset int) ([]*models.TokenRecord, error) {
	var recs []*models.TokenRecord
	err := p.db.WithContext(ctx).
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}

func (p *postgresStorage) ListTrades(ctx context.Context, engine string, limit, offset int) ([]*models.TradeRecord, error) {
	var recs []*models.TradeRecord
	err := p.db.WithContext(ctx).
		Where("engine = ?", engine).
		Order("sequence desc").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	return recs, err
}

func (p *postgresStorage) GetGraduation(ctx context.Context, mint string) (*models.GraduationRecord, error) {
	var rec models.GraduationRecord
	err := p.db.WithContext(ctx).Where("mint = ?", mint).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
