package syncjob

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "https://api.ceres.gob.ar/api/api"
	DefaultInterval = 30 * time.Minute
	DefaultTimeout  = 30 * time.Second
)

// Config is everything a sync run needs to know about where it reads from
// and where it writes to.
type Config struct {
	BaseURL   string        `yaml:"api_url" env:"SURVEY_API_URL"`
	Interval  time.Duration `yaml:"interval" env:"SYNC_INTERVAL"`
	Timeout   time.Duration `yaml:"timeout" env:"SYNC_TIMEOUT"`
	DBPath    string        `yaml:"db_path" env:"SYNC_DB_PATH"`
	Endpoints []string      `yaml:"endpoints"`
	Sheets    SheetNames    `yaml:"sheets"`
}

type SheetNames struct {
	Raw       string `yaml:"raw"`
	Barrio    string `yaml:"barrio"`
	Obras     string `yaml:"obras"`
	Servicios string `yaml:"servicios"`
	Temporal  string `yaml:"temporal"`
	KPIs      string `yaml:"kpis"`
	Config    string `yaml:"config"`
	Errores   string `yaml:"errores"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DBPath == "" {
		c.DBPath = "qsurvey.sqlite"
	}
	if len(c.Endpoints) == 0 {
		c.Endpoints = []string{"/todas", "/estadisticas", "/salud"}
	}
	s := &c.Sheets
	for _, f := range []struct {
		name *string
		def  string
	}{
		{&s.Raw, "Respuestas_Raw"},
		{&s.Barrio, "Estadisticas_Barrio"},
		{&s.Obras, "Obras_Ranking"},
		{&s.Servicios, "Servicios_Ranking"},
		{&s.Temporal, "Evolucion_Temporal"},
		{&s.KPIs, "KPIs_Generales"},
		{&s.Config, "Config"},
		{&s.Errores, "Errores"},
	} {
		if *f.name == "" {
			*f.name = f.def
		}
	}
}

// DefaultConfig is the configuration used when nothing is overridden.
func DefaultConfig() Config {
	var c Config
	c.defaults()
	return c
}

// LoadConfig reads the optional YAML file at path, then applies environment
// overrides, then fills anything still unset with defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "config: read")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: env")
	}
	cfg.defaults()
	return cfg, nil
}
