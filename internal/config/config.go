package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Solana   SolanaConfig
	Wallet   WalletConfig
	Telegram TelegramConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// UpstreamConfig points at the external raffle/affiliate backend.
type UpstreamConfig struct {
	BaseURL string
}

type SolanaConfig struct {
	RPCURL           string
	Mint             string
	CollectorAddress string
	Decimals         uint8
}

type WalletConfig struct {
	ConnectTimeout  time.Duration
	ConnectRetries  int
	RetryBackoff    time.Duration
	FeatureRoute    string
	IOSStoreURL     string
	AndroidStoreURL string
}

type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	decimals, _ := strconv.Atoi(getEnv("SOLANA_MINT_DECIMALS", "6"))
	retries, _ := strconv.Atoi(getEnv("WALLET_CONNECT_RETRIES", "3"))
	connectTimeout, _ := time.ParseDuration(getEnv("WALLET_CONNECT_TIMEOUT", "30s"))
	retryBackoff, _ := time.ParseDuration(getEnv("WALLET_RETRY_BACKOFF", "2s"))
	sessionTTL, _ := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	adminChatID, _ := strconv.ParseInt(getEnv("TELEGRAM_ADMIN_CHAT_ID", "0"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "simio"),
			Password: getEnv("DB_PASSWORD", "simio"),
			Name:     getEnv("DB_NAME", "simio_gateway"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("RAFFLE_API_BASE_URL", "http://localhost:3000"),
		},
		Solana: SolanaConfig{
			RPCURL:           getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			Mint:             getEnv("SIMIO_MINT_ADDRESS", ""),
			CollectorAddress: getEnv("RAFFLE_COLLECTOR_ADDRESS", ""),
			Decimals:         uint8(decimals),
		},
		Wallet: WalletConfig{
			ConnectTimeout:  connectTimeout,
			ConnectRetries:  retries,
			RetryBackoff:    retryBackoff,
			FeatureRoute:    getEnv("WALLET_FEATURE_ROUTE", "/raffle"),
			IOSStoreURL:     getEnv("PHANTOM_IOS_STORE_URL", "https://apps.apple.com/app/phantom-solana-wallet/id1598432977"),
			AndroidStoreURL: getEnv("PHANTOM_ANDROID_STORE_URL", "https://play.google.com/store/apps/details?id=app.phantom"),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminChatID: adminChatID,
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "simio_session"),
			TTL:        sessionTTL,
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Polling and housekeeping cadences
const (
	ActivePollInterval  = 2 * time.Second // connected address is in the current round
	IdlePollInterval    = 5 * time.Second
	SessionReapInterval = 10 * time.Minute
	ConfirmPollInterval = 2 * time.Second
	ConfirmTimeout      = 60 * time.Second
)
