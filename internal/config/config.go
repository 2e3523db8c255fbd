package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Port     string   `yaml:"port"`
	DBDriver string   `yaml:"db_driver"`
	DBDSN    string   `yaml:"db_dsn"`
	Secret   string   `yaml:"secret"`
	Session  Session  `yaml:"session"`
	Admin    Admin    `yaml:"admin"`
	Security Security `yaml:"security"`
	Log      Log      `yaml:"log"`
}

type Session struct {
	CookieName   string        `yaml:"cookie_name"`
	Lifetime     time.Duration `yaml:"lifetime"`
	RememberFor  time.Duration `yaml:"remember_for"`
	SecureCookie bool          `yaml:"secure_cookie"`
	// EncryptionKey enables cookie encryption; it must be 16, 24 or 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
}

// Admin is the principal seeded at startup when the user table has no
// account by that name.
type Admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Security struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

const (
	DefaultAdminUsername = "user"
	DefaultAdminPassword = "password"
)

var drivers = []string{"sqlite3", "sqlite", "postgres"}

func Default() *Config {
	return &Config{
		Port:     "8080",
		DBDriver: "sqlite3",
		DBDSN:    "blog.db",
		Session: Session{
			CookieName:  "session",
			Lifetime:    24 * time.Hour,
			RememberFor: 365 * 24 * time.Hour,
		},
		Admin: Admin{
			Username: DefaultAdminUsername,
			Password: DefaultAdminPassword,
		},
		Log: Log{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads filename over the defaults, so a partial file only overrides
// what it names.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	for env, dst := range map[string]*string{
		"PORT":           &c.Port,
		"DB_DRIVER":      &c.DBDriver,
		"DATABASE_URL":   &c.DBDSN,
		"SECRET_KEY":     &c.Secret,
		"ADMIN_USERNAME": &c.Admin.Username,
		"ADMIN_PASSWORD": &c.Admin.Password,
		"LOG_LEVEL":      &c.Log.Level,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(drivers, c.DBDriver) {
		errs = append(errs, fmt.Errorf("db_driver must be one of %s, got %q", strings.Join(drivers, ", "), c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("db_dsn is required"))
	}
	if strings.TrimSpace(c.Admin.Username) == "" || c.Admin.Password == "" {
		errs = append(errs, errors.New("admin username and password are required"))
	}
	if c.Session.Lifetime < 0 || c.Session.RememberFor < 0 {
		errs = append(errs, errors.New("session durations must not be negative"))
	}
	if k := len(c.Session.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		errs = append(errs, fmt.Errorf("session encryption_key must be 16, 24 or 32 bytes, got %d", k))
	}

	return errors.Join(errs...)
}

// UsesDefaultAdminPassword reports whether the seeded admin keeps the
// well-known password.
func (c *Config) UsesDefaultAdminPassword() bool {
	return c.Admin.Password == DefaultAdminPassword
}
