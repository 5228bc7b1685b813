package config // package config loads application configuration from environment variables

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Token lifetimes outside this window are clamped.
const (
    MinTokenTTL = 8 * time.Hour
    MaxTokenTTL = 24 * time.Hour
)

// Config holds all runtime configuration values.  Secrets are only ever read
// from the environment.
type Config struct {
    Env      string // application environment (dev, test, prod)
    Port     string // HTTP port to listen on
    DBDriver string // sqlite3 or mysql
    DBDSN    string // file path for sqlite3, DSN for mysql

    JWTSecret  string
    TokenTTL   time.Duration
    BcryptCost int

    UploadDir string

    AdminUsername string
    AdminMail     string
    AdminPassword string // admin is only seeded when set

    LogLevel  string
    LogFormat string

    RabbitURL string // empty disables event publishing

    PayU          PayUConfig
    DefaultAmount float64 // used when a payment is created without an amount
}

// PayUConfig configures the payment gateway adapter.
type PayUConfig struct {
    Enabled      bool
    BaseURL      string
    ClientID     string
    ClientSecret string
    PosID        string
    SecondKey    string // shared key used to sign webhook notifications
    NotifyURL    string
    ContinueURL  string
    Currency     string
    Timeout      time.Duration
}

// Load reads a .env file when present, then the process environment.  All
// missing required variables are reported in one error.
func Load() (Config, error) {
    _ = godotenv.Load()

    var missing []string
    require := func(key string) string {
        v := strings.TrimSpace(os.Getenv(key))
        if v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := Config{
        Env:           getenv("APP_ENV", "dev"),
        Port:          getenv("APP_PORT", "3000"),
        DBDriver:      getenv("DB_DRIVER", "sqlite3"),
        DBDSN:         getenv("DB_DSN", "guardhire.db"),
        JWTSecret:     require("JWT_SECRET"),
        TokenTTL:      clampTTL(parseDur(getenv("TOKEN_TTL", "12h"))),
        BcryptCost:    atoi(getenv("BCRYPT_COST", "10")),
        UploadDir:     getenv("UPLOAD_DIR", "uploads"),
        AdminUsername: getenv("ADMIN_USERNAME", "admin"),
        AdminMail:     getenv("ADMIN_MAIL", "admin@guardhire.pl"),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),
        LogLevel:      getenv("LOG_LEVEL", "info"),
        LogFormat:     getenv("LOG_FORMAT", "json"),
        RabbitURL:     os.Getenv("RABBITMQ_URL"),
        PayU: PayUConfig{
            Enabled:     envBool("PAYU_ENABLED", false),
            BaseURL:     strings.TrimRight(getenv("PAYU_BASE_URL", "https://secure.snd.payu.com"), "/"),
            NotifyURL:   os.Getenv("PAYU_NOTIFY_URL"),
            ContinueURL: os.Getenv("PAYU_CONTINUE_URL"),
            Currency:    getenv("PAYU_CURRENCY", "PLN"),
            Timeout:     envDur("PAYU_TIMEOUT", 15*time.Second),
        },
    }
    if cfg.PayU.Enabled {
        cfg.PayU.ClientID = require("PAYU_CLIENT_ID")
        cfg.PayU.ClientSecret = require("PAYU_CLIENT_SECRET")
        cfg.PayU.PosID = require("PAYU_POS_ID")
        cfg.PayU.SecondKey = require("PAYU_SECOND_KEY")
    } else {
        cfg.PayU.SecondKey = os.Getenv("PAYU_SECOND_KEY")
    }

    amount, err := strconv.ParseFloat(getenv("PAYMENT_DEFAULT_AMOUNT", "100.00"), 64)
    if err != nil || amount <= 0 {
        return Config{}, fmt.Errorf("invalid PAYMENT_DEFAULT_AMOUNT: %q", os.Getenv("PAYMENT_DEFAULT_AMOUNT"))
    }
    cfg.DefaultAmount = amount

    if len(missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }
    switch cfg.DBDriver {
    case "sqlite3", "mysql":
    default:
        return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
    }
    if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
        return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
    }
    return cfg, nil
}

func clampTTL(d time.Duration) time.Duration {
    if d < MinTokenTTL {
        return MinTokenTTL
    }
    if d > MaxTokenTTL {
        return MaxTokenTTL
    }
    return d
}
