package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"forgerelay/internal/bootstrap/logging"
	"forgerelay/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RelayConfig holds every setting the relay's ambient and domain stack
// needs at startup. Env vars use the RELAY_ prefix (RELAY_APP_ID,
// RELAY_SHARED_SECRET, ...); see Load for the exact mapping.
type RelayConfig struct {
	Addr string `mapstructure:"addr"`

	SharedSecret string `mapstructure:"shared_secret"`
	V1Token      string `mapstructure:"v1_token"`

	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPEM  string `mapstructure:"private_key_pem"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	APIBaseURL     string `mapstructure:"api_base_url"`

	LabelRulesJSON string `mapstructure:"label_rules_json"`
	LabelRulesPath string `mapstructure:"label_rules_path"`

	EvidenceRoot string `mapstructure:"evidence_root"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	// Bind the individual RELAY_* env vars that don't nest under the
	// "relay." mapstructure prefix the same way the config file does.
	bindRelayEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Relay.SharedSecret == "" {
		return Config{}, errors.New("relay.shared_secret (RELAY_SHARED_SECRET) is required")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("addr", cfg.Relay.Addr),
	)

	return cfg, nil
}

func bindRelayEnv(v *viper.Viper) {
	bindings := map[string]string{
		"relay.addr":             "RELAY_ADDR",
		"relay.shared_secret":    "RELAY_SHARED_SECRET",
		"relay.v1_token":         "RELAY_V1_TOKEN",
		"relay.app_id":           "RELAY_APP_ID",
		"relay.installation_id":  "RELAY_INSTALLATION_ID",
		"relay.private_key_pem":  "RELAY_PRIVATE_KEY_PEM",
		"relay.private_key_path": "RELAY_PRIVATE_KEY_PATH",
		"relay.api_base_url":     "RELAY_API_BASE_URL",
		"relay.label_rules_json": "RELAY_LABEL_RULES_JSON",
		"relay.label_rules_path": "RELAY_LABEL_RULES_PATH",
		"relay.evidence_root":    "RELAY_EVIDENCE_ROOT",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "forgerelay")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".relay/state/relay.sqlite")
	v.SetDefault("relay.addr", ":8080")
	v.SetDefault("relay.evidence_root", ".relay/evidence")
}
