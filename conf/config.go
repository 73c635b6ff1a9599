package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（数据库、行情源、各通知渠道的密钥等）

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type JwtConfig struct {
	Secret                  string `yaml:"secret"`
	JwtTtl                  int64  `yaml:"ttl"`             // token 有效期（秒）
	JwtBlacklistGracePeriod int64  `yaml:"blacklistperiod"` // 黑名单宽限时间（秒）
}

// Duration 支持 "10s"/"3m" 这种写法的时长字段
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// QuoteConfig 行情提供方
type QuoteConfig struct {
	BaseURL string   `yaml:"base_url"`
	ApiKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// CheckConfig 价格检查管线
type CheckConfig struct {
	// 单次运行的超时上限，超时后已提交的更新不回滚
	RunTimeout Duration `yaml:"run_timeout"`
	// 每用户每天允许的检查次数（固定窗口，UTC零点重置）
	DailyQuota int `yaml:"daily_quota"`
	// 历史记录每用户保留的条数，超出后先进先出淘汰
	HistoryCap int `yaml:"history_cap"`
	// 后台巡检的cron表达式，为空则不启动巡检
	SweepSpec string `yaml:"sweep_spec"`
}

type TelegramConfig struct {
	ApiBase string `yaml:"api_base"` // 默认 https://api.telegram.org
	// setWebhook时注册的secret_token，为空则不校验来源
	WebhookSecret string `yaml:"webhook_secret"`
	// 广播每条消息之间的间隔，尊重Bot API的限流
	SendInterval Duration `yaml:"send_interval"`
}

type WhatsAppConfig struct {
	ApiBase       string `yaml:"api_base"` // 默认 https://graph.facebook.com/v17.0
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
}

type PayPalConfig struct {
	ApiBase   string `yaml:"api_base"` // https://api-m.paypal.com 或 sandbox
	ClientID  string `yaml:"client_id"`
	Secret    string `yaml:"secret"`
	WebhookID string `yaml:"webhook_id"`
}

type EmailConfig struct {
	Host     string `yaml:"smtp_host"`
	Port     int    `yaml:"smtp_port"`
	Username string `yaml:"smtp_user"`
	Password string `yaml:"smtp_password"`
	Sender   string `yaml:"smtp_sender"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
	// 运行结果事件写入的topic，为空则不投递
	EventTopic string `yaml:"event_topic"`
}

type Apns struct {
	Topic          string `yaml:"topic"`
	KeyID          string `yaml:"key_id"`
	TeamID         string `yaml:"team_id"`
	KeyFile        string `yaml:"key_file"`
	PayloadMaximum int    `yaml:"payload_maximum"`
	IsProd         bool   `yaml:"is_prod"`
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`
	ExternalURL  string `yaml:"external_url"`

	Db       `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Jwt      JwtConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Quote    QuoteConfig    `yaml:"quote"`
	Check    CheckConfig    `yaml:"check"`
	Telegram TelegramConfig `yaml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	PayPal   PayPalConfig   `yaml:"paypal"`
	Email    EmailConfig    `yaml:"email"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Apns     Apns           `yaml:"apns"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	applyDefaults(&AppConfig)
	return nil
}

func applyDefaults(c *Config) {
	if c.Check.RunTimeout == 0 {
		c.Check.RunTimeout = Duration(3 * time.Minute)
	}
	if c.Check.DailyQuota == 0 {
		c.Check.DailyQuota = 20
	}
	if c.Check.HistoryCap == 0 {
		c.Check.HistoryCap = 50
	}
	if c.Telegram.ApiBase == "" {
		c.Telegram.ApiBase = "https://api.telegram.org"
	}
	if c.Telegram.SendInterval == 0 {
		c.Telegram.SendInterval = Duration(100 * time.Millisecond)
	}
	if c.WhatsApp.ApiBase == "" {
		c.WhatsApp.ApiBase = "https://graph.facebook.com/v17.0"
	}
	if c.Quote.Timeout == 0 {
		c.Quote.Timeout = Duration(10 * time.Second)
	}
}
