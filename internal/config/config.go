package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"fitlook"`
	DBPath     string `env:"DBPath" envDefault:"datas/fitlook.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	// Supabase 托管后端（数据库与对象存储共用）
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageBucket        string `env:"STORAGE_BUCKET" envDefault:"public"`
	StorageRootFolder    string `env:"STORAGE_ROOT_FOLDER" envDefault:"fitlook"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/images"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置，BucketURL 形如 https://<bucket>-<appid>.cos.<region>.myqcloud.com
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	ModelDriver              string `env:"MODEL_DRIVER" envDefault:"gemini"`
	GeminiAPIKey             string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiEndpoint           string `env:"GEMINI_ENDPOINT" envDefault:""`
	VolcengineAPIKey         string `env:"VOLCENGINE_API_KEY" envDefault:""`
	VolcengineModel          string `env:"VOLCENGINE_MODEL" envDefault:"doubao-seedream-4-0-250828"`
	GenerationTimeoutSeconds int    `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"180"`

	FreeTriesDefault  int `env:"FREE_TRIES_DEFAULT" envDefault:"50"`
	CostPerGeneration int `env:"COST_PER_GENERATION" envDefault:"3"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"fitlook"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:""`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:""`
}

// ParseConfig 读取 .env（若存在）后解析环境变量。
func ParseConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	if Conf.FreeTriesDefault < 0 {
		Conf.FreeTriesDefault = 0
	}
	logrus.WithFields(logrus.Fields{
		"db_type":      Conf.DBType,
		"storage_type": Conf.StorageType,
		"model_driver": Conf.ModelDriver,
	}).Debug("config loaded")
	return Conf, nil
}
