package model

import (
	"fitlook/internal/config"
	"fitlook/internal/entity"
	"fitlook/internal/model/sql"
	"fitlook/internal/model/supabase"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/sirupsen/logrus"
)

const (
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeSupabase = "supabase"
)

// RepositoryFactory 根据数据库类型创建对应的仓库实现
type RepositoryFactory struct{}

// NewRepositoryFactory 创建新的仓库工厂
func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

// InitRepository 初始化仓库的辅助函数
func InitRepository(cfg *config.Config) (Repository, error) {
	factory := NewRepositoryFactory()

	if cfg.DBType == "" {
		return nil, nil
	}

	repo, err := factory.CreateRepository(cfg)
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateRepository 根据配置创建对应的仓库实现
func (f *RepositoryFactory) CreateRepository(cfg *config.Config) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case DBTypeMySQL:
		return f.createGormRepository("MySQL", mysql.Open(mysqlDSN(cfg)), 100)
	case DBTypeSQLite:
		dialector, err := sqliteDialector(cfg)
		if err != nil {
			return nil, err
		}
		// sqlite 只允许一个写连接，多连接会出现 database is locked
		return f.createGormRepository("SQLite", dialector, 1)
	case DBTypePostgres:
		return f.createGormRepository("PostgreSQL", postgres.Open(postgresDSN(cfg)), 100)
	case DBTypeSupabase:
		return f.createSupabaseRepository(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

func mysqlDSN(cfg *config.Config) string {
	if cfg.DSNURL != "" {
		return cfg.DSNURL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBAddr, cfg.DBPort, cfg.DBName)
}

func postgresDSN(cfg *config.Config) string {
	if cfg.DSNURL != "" {
		return cfg.DSNURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBAddr, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
}

// sqliteDialector 打开前确保数据库文件所在目录存在
func sqliteDialector(cfg *config.Config) (gorm.Dialector, error) {
	filePath := cfg.DBPath
	if filePath == "" {
		filePath = "datas/fitlook.db"
	}
	if dir := filepath.Dir(filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}
	return sqlite.Open(filePath), nil
}

// createGormRepository 连接数据库、迁移表结构并返回 GORM 仓库
func (f *RepositoryFactory) createGormRepository(name string, dialector gorm.Dialector, maxOpen int) (Repository, error) {
	db, err := f.openGormDB(dialector, maxOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	if err := f.migrateSchema(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	logrus.WithField("dialect", name).Info("repository ready")
	return sql.NewGormRepository(db), nil
}

// createSupabaseRepository 创建基于 Supabase PostgREST 的仓库，表结构由 Supabase 侧迁移维护
func (f *RepositoryFactory) createSupabaseRepository(cfg *config.Config) (Repository, error) {
	repo, err := supabase.NewRepository(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	return repo, nil
}

func (f *RepositoryFactory) openGormDB(dialector gorm.Dialector, maxOpen int) (*gorm.DB, error) {
	// SQL 慢查询与错误写入 logrus
	gormLogger := logger.New(
		log.New(logrus.StandardLogger().WriterLevel(logrus.WarnLevel), "", 0),
		logger.Config{
			SlowThreshold:             time.Second * 5,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(min(10, maxOpen))
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// migrateSchema 迁移数据库表结构
func (f *RepositoryFactory) migrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.DbUser{},
		&entity.DbProfile{},
		&entity.DbGarment{},
		&entity.DbCustomer{},
		&entity.DbTryonHistory{},
		&entity.DbSystemSetting{},
	)
}
