package config

import (
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	LogLevel   string

	// 区块链提供者配置
	ProviderBaseURL   string
	ProviderProjectID string
	ProviderNetwork   string
	ProviderTimeout   int // 秒

	// NFT 铸造策略配置
	NFTPolicyID         string
	NFTPolicyExpirySlot int64
	PlatformAddress     string // 平台收款地址
	NFTImageBaseURL     string
	MintMaxAttempts     int
	MintRetryBaseDelay  int // 秒

	// 收据邮件配置
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FrontendURL  string
	BackendURL   string

	// 元数据归档存储配置
	S3Region           string
	S3Bucket           string
	GCSProjectID       string
	GCSBucketName      string
	GCSCredentialsFile string
	LocalStoragePath   string

	Debug bool // 是否开启调试模式
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	err := godotenv.Load()
	if err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	// 从环境变量中读取配置
	AppConfig = Config{
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", ""),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://cardano-preprod.blockfrost.io/api/v0"),
		ProviderProjectID: getEnv("PROVIDER_PROJECT_ID", ""),
		ProviderNetwork:   getEnv("PROVIDER_NETWORK", "preprod"),
		ProviderTimeout:   getEnvAsInt("PROVIDER_TIMEOUT", 15),

		NFTPolicyID:         getEnv("NFT_POLICY_ID", ""),
		NFTPolicyExpirySlot: getEnvAsInt64("NFT_POLICY_EXPIRY_SLOT", 0),
		PlatformAddress:     getEnv("PLATFORM_ADDRESS", ""),
		NFTImageBaseURL:     getEnv("NFT_IMAGE_BASE_URL", "ipfs://QmEduverseReceiptPlaceholder"),
		MintMaxAttempts:     getEnvAsInt("MINT_MAX_ATTEMPTS", 5),
		MintRetryBaseDelay:  getEnvAsInt("MINT_RETRY_BASE_DELAY", 2),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:8080"),

		S3Region:           getEnv("S3_REGION", "us-west-2"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		GCSProjectID:       getEnv("GCS_PROJECT_ID", ""),
		GCSBucketName:      getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		LocalStoragePath:   getEnv("LOCAL_STORAGE_PATH", "./metadata-archive"),

		Debug: getEnvAsBool("DEBUG", true),
	}

	validateConfig()

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。数据库：%s:%s，区块链网络：%s", AppConfig.DBHost, AppConfig.DBPort, AppConfig.ProviderNetwork)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func validateConfig() {
	if AppConfig.DBHost == "" || AppConfig.DBPort == "" || AppConfig.DBUser == "" || AppConfig.DBPassword == "" || AppConfig.DBName == "" {
		log.Fatal("错误：数据库配置不完整")
	}
	if AppConfig.JWTSecret == "" {
		log.Fatal("错误：JWT密钥未设置")
	}
	if AppConfig.ProviderProjectID == "" {
		log.Fatal("错误：区块链提供者 Project ID 未设置")
	}
	if AppConfig.PlatformAddress == "" {
		log.Fatal("错误：平台收款地址未设置")
	}
	if AppConfig.NFTPolicyID == "" {
		log.Fatal("错误：NFT 铸造策略 ID 未设置")
	}
}
