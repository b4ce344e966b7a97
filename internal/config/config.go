package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"binderflow/backend/internal/pipeline"
	"binderflow/backend/internal/services"
)

// EnvPrefix prefixes environment overrides, e.g. BINDERFLOW_DB_HOST.
const EnvPrefix = "BINDERFLOW"

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Server        struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		OutputDir       string        `mapstructure:"output_dir"`
	} `mapstructure:"server"`
	DB struct {
		// Driver is "postgres" or "sqlite".
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		Path     string `mapstructure:"path"`
	} `mapstructure:"db"`
	Prediction struct {
		APIKey    string             `mapstructure:"api_key"`
		Timeout   time.Duration      `mapstructure:"timeout"`
		Endpoints services.Endpoints `mapstructure:"endpoints"`
	} `mapstructure:"prediction"`
	Pipeline pipeline.Config `mapstructure:"pipeline"`
	Auth     struct {
		OktaDomain   string `mapstructure:"okta_domain"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool { return strings.EqualFold(c.Environment, "dev") }

// DSN returns the database connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DB.Driver == "sqlite" {
		return c.DB.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "PROD")
	v.SetDefault("dev_mode_bypass", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	// Stage endpoints block until the stage finishes.
	v.SetDefault("server.write_timeout", 45*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.output_dir", "./output")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "binderflow")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "binderflow")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "binderflow.db")

	ep := services.DefaultEndpoints()
	v.SetDefault("prediction.api_key", "")
	v.SetDefault("prediction.timeout", 120*time.Second)
	v.SetDefault("prediction.endpoints.alphafold2", ep.AlphaFold2)
	v.SetDefault("prediction.endpoints.openfold3", ep.OpenFold3)
	v.SetDefault("prediction.endpoints.rfdiffusion", ep.RFdiffusion)
	v.SetDefault("prediction.endpoints.proteinmpnn", ep.ProteinMPNN)
	v.SetDefault("prediction.endpoints.multimer", ep.Multimer)
	v.SetDefault("prediction.endpoints.status", ep.Status)

	pc := pipeline.DefaultConfig()
	v.SetDefault("pipeline.structure_policy.interval", pc.StructurePolicy.Interval)
	v.SetDefault("pipeline.structure_policy.max_attempts", pc.StructurePolicy.MaxAttempts)
	v.SetDefault("pipeline.design_policy.interval", pc.DesignPolicy.Interval)
	v.SetDefault("pipeline.design_policy.max_attempts", pc.DesignPolicy.MaxAttempts)
	v.SetDefault("pipeline.parallelism", pc.Parallelism)
	v.SetDefault("pipeline.scaffold_atom_limit", pc.ScaffoldAtomLimit)
	v.SetDefault("pipeline.interface_cutoff", pc.InterfaceCutoff)

	v.SetDefault("auth.okta_domain", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "")

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig loads the configuration from configFile, or from config.yaml in
// the working directory or ./config when configFile is empty, and then
// applies BINDERFLOW_* environment overrides. A missing default config file
// is not an error.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The prediction service key is conventionally exported without a prefix.
	if err := v.BindEnv("prediction.api_key", EnvPrefix+"_PREDICTION_API_KEY", "NGC_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Pipeline.Parallelism < 1 {
		return fmt.Errorf("pipeline.parallelism must be at least 1, got %d", c.Pipeline.Parallelism)
	}
	if c.Pipeline.InterfaceCutoff <= 0 {
		return fmt.Errorf("pipeline.interface_cutoff must be positive, got %g", c.Pipeline.InterfaceCutoff)
	}
	return nil
}

// normalizeOktaIssuer ensures the provided Okta issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact.
func normalizeOktaIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
