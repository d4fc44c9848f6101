package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	// Tenants apunta al YAML con el registro de inquilinos (dominio, prefijo,
	// proveedores sociales).
	Tenants struct {
		Path string `yaml:"path"`
	} `yaml:"tenants"`

	Auth struct {
		Session struct {
			CookieName string        `yaml:"cookie_name"`
			SameSite   string        `yaml:"samesite"`
			Secure     bool          `yaml:"secure"`
			TTL        time.Duration `yaml:"ttl"`
		} `yaml:"session"`
		Reset struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"reset"`
		Verify struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"verify"`
		CSRF struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"csrf"`
		Lockout struct {
			Threshold int           `yaml:"threshold"`
			Window    time.Duration `yaml:"window"`
		} `yaml:"lockout"`
		// StateSecret firma el state de los flujos OAuth (HS256).
		StateSecret string `yaml:"state_secret"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"login"`
		Forgot struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"forgot"`
		Signup struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"signup"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		// BaseURL arma los links de verificación y reset. Si queda vacío se
		// usa https://<dominio-del-tenant>.
		BaseURL string `yaml:"base_url"`
	} `yaml:"email"`

	Billing struct {
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		WebhookSecret string `yaml:"webhook_secret"`
		SuccessURL    string `yaml:"success_url"`
		CancelURL     string `yaml:"cancel_url"`
	} `yaml:"billing"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 2 * time.Minute
	}
	if c.Tenants.Path == "" {
		c.Tenants.Path = "tenants.yaml"
	}

	// Auth/session defaults
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Session.TTL == 0 {
		c.Auth.Session.TTL = 720 * time.Hour // 30d
	}
	if c.Auth.Reset.TTL == 0 {
		c.Auth.Reset.TTL = time.Hour
	}
	if c.Auth.Verify.TTL == 0 {
		c.Auth.Verify.TTL = 24 * time.Hour
	}
	if c.Auth.CSRF.TTL == 0 {
		c.Auth.CSRF.TTL = 30 * time.Minute
	}
	if c.Auth.Lockout.Threshold == 0 {
		c.Auth.Lockout.Threshold = 5
	}
	if c.Auth.Lockout.Window == 0 {
		c.Auth.Lockout.Window = 15 * time.Minute
	}

	// Rate limit defaults por endpoint
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == 0 {
		c.Rate.Forgot.Window = 10 * time.Minute
	}
	if c.Rate.Signup.Limit == 0 {
		c.Rate.Signup.Limit = 10
	}
	if c.Rate.Signup.Window == 0 {
		c.Rate.Signup.Window = time.Minute
	}

	// SMTP defaults
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Normalizar ruta de tenants (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Tenants.Path); p != "" && !filepath.IsAbs(p) {
		base := filepath.Dir(path)
		c.Tenants.Path = filepath.Clean(filepath.Join(base, p))
	}

	return &c, nil
}

// Validate rechaza configuraciones con las que el servidor no puede operar.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn es obligatorio")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.kind inválido: %q", c.Cache.Kind)
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr es obligatorio con kind=redis")
	}
	if strings.TrimSpace(c.Auth.StateSecret) == "" {
		return fmt.Errorf("config: auth.state_secret es obligatorio")
	}
	switch strings.ToLower(c.Auth.Session.SameSite) {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("config: auth.session.samesite inválido: %q", c.Auth.Session.SameSite)
	}
	if strings.EqualFold(c.App.Env, "prod") && !c.Auth.Session.Secure {
		return fmt.Errorf("config: auth.session.secure debe ser true en prod")
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides permite pisar valores sensibles sin tocar el YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_CONNS"); ok {
		c.Storage.MaxConns = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("TENANTS_PATH"); ok {
		c.Tenants.Path = v
	}
	if v, ok := getEnvStr("AUTH_STATE_SECRET"); ok {
		c.Auth.StateSecret = v
	}
	if v, ok := getEnvDur("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}
	if v, ok := getEnvBool("AUTH_SESSION_SECURE"); ok {
		c.Auth.Session.Secure = v
	}
	if v, ok := getEnvInt("AUTH_LOCKOUT_THRESHOLD"); ok {
		c.Auth.Lockout.Threshold = v
	}
	if v, ok := getEnvDur("AUTH_LOCKOUT_WINDOW"); ok {
		c.Auth.Lockout.Window = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("BILLING_BASE_URL"); ok {
		c.Billing.BaseURL = v
	}
	if v, ok := getEnvStr("BILLING_API_KEY"); ok {
		c.Billing.APIKey = v
	}
	if v, ok := getEnvStr("BILLING_WEBHOOK_SECRET"); ok {
		c.Billing.WebhookSecret = v
	}
}
