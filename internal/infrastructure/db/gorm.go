package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

var DefaultPool = PoolConfig{
	MaxOpenConns:    30,
	MaxIdleConns:    10,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 10 * time.Minute,
}

func OpenGorm(dsn string, pool PoolConfig) (*gorm.DB, error) {
	return openGorm(mysql.Open(dsn), pool, logger.Default.LogMode(logger.Warn))
}

// OpenGormWithDialector skips DSN parsing so callers can hand in a prepared
// connection (sqlmock in tests, a shared *sql.DB elsewhere).
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	return openGorm(dial, DefaultPool, logger.Default.LogMode(logger.Silent))
}

func openGorm(dial gorm.Dialector, pool PoolConfig, lg logger.Interface) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: lg,
		// duplicate-key errors surface as gorm.ErrDuplicatedKey
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC() },
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	zap.L().Info("gorm: connected", zap.Int("max_open_conns", pool.MaxOpenConns))
	return db, nil
}
