package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Addr             string
	DBUrl            string
	TokenSecret      string `env:"QSURVEY_TOKEN_SECRET"`
	TokenTTL         time.Duration
	SessionTTL       time.Duration
	BackendURL       string `env:"SURVEY_API_URL" envDefault:"https://api.ceres.gob.ar/api/api"`
	RecaptchaSecret  string `env:"RECAPTCHA_SECRET"`
	RecaptchaSiteKey string `env:"RECAPTCHA_SITE_KEY"`
	AdminUser        string `env:"QSURVEY_ADMIN_USER"`
	AdminPassword    string `env:"QSURVEY_ADMIN_PASSWORD"`
	Debug            bool
}

// ParseFlags reads the environment first; command line flags win over it.
func ParseFlags(args []string) (cfg Config, err error) {
	if err = env.Parse(&cfg); err != nil {
		return
	}

	fs := flag.NewFlagSet("barrio-survey", flag.ContinueOnError)
	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", "qsurvey.sqlite", "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", 120, "admin token TTL in seconds")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 2*time.Hour, "survey session lifetime")
	fs.StringVar(&cfg.BackendURL, "api-url", cfg.BackendURL, "survey backend base URL")
	fs.StringVar(&cfg.AdminUser, "admin-user", cfg.AdminUser, "admin account created or updated at start-up")
	fs.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "password for -admin-user")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.AdminUser != "" && cfg.AdminPassword == "":
		err = errors.New("missing parameter -admin-password")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
