package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/service/timeseries"
)

type Config struct {
	Input       InputConfig       `mapstructure:"input"`
	Report      ReportConfig      `mapstructure:"report"`
	Migrate     bool              `mapstructure:"migrate"`
	Files       FilesConfig       `mapstructure:"files"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	DB          DBConfig          `mapstructure:"db"`
	Log         LogConfig         `mapstructure:"log"`
	Aggregation []AggregationRule `mapstructure:"aggregation" validate:"dive"`
}

type InputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type ReportConfig struct {
	Path string `mapstructure:"path"`
}

type FilesConfig struct {
	Confirmed string `mapstructure:"confirmed" validate:"required"`
	Deaths    string `mapstructure:"deaths" validate:"required"`
	Recovered string `mapstructure:"recovered" validate:"required"`
}

// Names returns the feed file names in confirmed, deaths, recovered order.
func (f FilesConfig) Names() []string {
	return []string{f.Confirmed, f.Deaths, f.Recovered}
}

type FetchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SourceURL string `mapstructure:"source_url" validate:"required_if=Enabled true,omitempty,url"`
	Retries   uint64 `mapstructure:"retries"`
}

type DBConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name" validate:"required"`
	SSLMode        string `mapstructure:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectRetries uint64 `mapstructure:"connect_retries"`
}

// DSN returns the postgres connection URL.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// AggregationRule names a country whose rows are reconciled with policy.
type AggregationRule struct {
	Country string `mapstructure:"country" validate:"required"`
	Policy  string `mapstructure:"policy" validate:"required"`
}

// Policies turns the aggregation rules into the reconciler's policy table.
func (c *Config) Policies() (timeseries.Policies, error) {
	policies := make(timeseries.Policies, len(c.Aggregation))
	for _, rule := range c.Aggregation {
		policy, err := timeseries.ParsePolicy(rule.Policy)
		if err != nil {
			return nil, fmt.Errorf("%w: aggregation rule for %s: %w", constants.ErrConfiguration, rule.Country, err)
		}
		policies[rule.Country] = policy
	}
	return policies, nil
}

// SetDefaults registers the default of every key, which also makes each key
// visible to environment lookups.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(constants.ViperInputDirKey, "./")
	v.SetDefault(constants.ViperReportPathKey, "")
	v.SetDefault(constants.ViperMigrateKey, true)

	v.SetDefault(constants.ViperFilesConfirmedKey, constants.DefaultConfirmedFile)
	v.SetDefault(constants.ViperFilesDeathsKey, constants.DefaultDeathsFile)
	v.SetDefault(constants.ViperFilesRecoveredKey, constants.DefaultRecoveredFile)

	v.SetDefault(constants.ViperFetchEnabledKey, false)
	v.SetDefault(constants.ViperFetchSourceKey, constants.DefaultSourceURL)
	v.SetDefault(constants.ViperFetchRetriesKey, 5)

	v.SetDefault(constants.ViperDBHostKey, "localhost")
	v.SetDefault(constants.ViperDBPortKey, 5432)
	v.SetDefault(constants.ViperDBUserKey, "")
	v.SetDefault(constants.ViperDBPasswordKey, "")
	v.SetDefault(constants.ViperDBNameKey, "covtrack")
	v.SetDefault(constants.ViperDBSSLModeKey, "disable")
	v.SetDefault(constants.ViperDBRetriesKey, 5)

	v.SetDefault(constants.ViperLogLevelKey, "info")

	v.SetDefault(constants.ViperAggregationKey, []map[string]interface{}{
		{"country": "Canada", "policy": string(timeseries.PolicySumSubNational)},
	})
}

// Load reads the configuration from v (flags bound by the caller), the
// environment, an optional .env file and an optional config file, then
// validates it. Every failure is a configuration error.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", constants.ErrConfiguration, err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString(constants.ViperConfigFileKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config %s: %w", constants.ErrConfiguration, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrConfiguration, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = func() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			_, err = cfg.Policies()
			return err
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", constants.ErrConfiguration, err)
		}

		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("%w: %s", constants.ErrConfiguration, strings.Join(msgs, "; "))
	}
}()

func describe(fe validator.FieldError) string {
	// Namespace is "Config.db.user"; drop the struct name.
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	env := constants.EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("missing required option %s (env %s)", key, env)
	case "oneof":
		return fmt.Sprintf("invalid %s '%v': want one of %s", key, fe.Value(), fe.Param())
	}
	return fmt.Sprintf("invalid %s '%v': failed %s", key, fe.Value(), fe.Tag())
}
