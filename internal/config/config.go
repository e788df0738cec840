package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint       = "http://127.0.0.1:18016/json_rpc"
	DefaultTemplate       = "fd92dc534dbb9577bcc72a221acfac5c87bdb359ed0517ce44648fd5d028bf82"
	DefaultMaxFee         = uint64(1000)
	DefaultAccount        = "TestAccount_0"
	DefaultCredentialFile = "token.data"
	DefaultTimeout        = 30 * time.Second
)

type GlobalFlags struct {
	ConfigPath     string
	JSON           bool
	Plain          bool
	Select         string
	ResultsOnly    bool
	EnableCommands string
	ReadOnly       bool
	Verbose        bool
	Timeout        string
	Endpoint       string
	Token          string
	Template       string
	MaxFee         int64
	DryRun         bool
	DumpBuckets    bool
	DefaultAccount string
	Account        string
	AdminBadge     string
	UserBadge      string
	Resource       string
	InputsMode     string
	Inputs         []string
	BuildOnly      bool
	NoHistory      bool
}

type Settings struct {
	OutputMode     string
	SelectFields   []string
	ResultsOnly    bool
	EnableCommands []string
	ReadOnly       bool
	Verbose        bool
	Timeout        time.Duration

	Endpoint       string
	Token          string
	Template       string
	MaxFee         uint64
	DryRun         bool
	DumpBuckets    bool
	DefaultAccount string
	Account        string
	AdminBadge     string
	UserBadge      string
	Resource       string
	InputsMode     string
	ExtraInputs    []string

	CredentialsPath     string
	CredentialsLockPath string
	HistoryEnabled      bool
	HistoryPath         string
	HistoryLockPath     string
}

type fileConfig struct {
	Output         string   `yaml:"output"`
	Timeout        string   `yaml:"timeout"`
	Endpoint       string   `yaml:"endpoint"`
	Template       string   `yaml:"template"`
	MaxFee         *uint64  `yaml:"max_fee"`
	DefaultAccount string   `yaml:"default_account"`
	Account        string   `yaml:"account"`
	AdminBadge     string   `yaml:"admin_badge"`
	UserBadge      string   `yaml:"user_badge"`
	Resource       string   `yaml:"resource"`
	InputsMode     string   `yaml:"inputs_mode"`
	Inputs         []string `yaml:"inputs"`
	ReadOnly       *bool    `yaml:"read_only"`
	Credentials    struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"credentials"`
	History struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"history"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "plain"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.CredentialsLockPath == "" {
		settings.CredentialsLockPath = settings.CredentialsPath + ".lock"
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	historyPath, lockPath, err := defaultHistoryPaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:      "plain",
		Timeout:         DefaultTimeout,
		Endpoint:        DefaultEndpoint,
		Template:        DefaultTemplate,
		MaxFee:          DefaultMaxFee,
		DefaultAccount:  DefaultAccount,
		InputsMode:      "full",
		CredentialsPath: DefaultCredentialFile,
		HistoryEnabled:  true,
		HistoryPath:     historyPath,
		HistoryLockPath: lockPath,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "coinctl", "config.yaml"), nil
}

func defaultHistoryPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "coinctl")
	return filepath.Join(dir, "history.db"), filepath.Join(dir, "history.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	setString(&settings.Endpoint, cfg.Endpoint)
	setString(&settings.Template, cfg.Template)
	if cfg.MaxFee != nil {
		settings.MaxFee = *cfg.MaxFee
	}
	setString(&settings.DefaultAccount, cfg.DefaultAccount)
	setString(&settings.Account, cfg.Account)
	setString(&settings.AdminBadge, cfg.AdminBadge)
	setString(&settings.UserBadge, cfg.UserBadge)
	setString(&settings.Resource, cfg.Resource)
	setString(&settings.InputsMode, strings.ToLower(cfg.InputsMode))
	if len(cfg.Inputs) > 0 {
		settings.ExtraInputs = append([]string(nil), cfg.Inputs...)
	}
	if cfg.ReadOnly != nil {
		settings.ReadOnly = *cfg.ReadOnly
	}
	setString(&settings.CredentialsPath, cfg.Credentials.Path)
	setString(&settings.CredentialsLockPath, cfg.Credentials.LockPath)
	if cfg.History.Enabled != nil {
		settings.HistoryEnabled = *cfg.History.Enabled
	}
	setString(&settings.HistoryPath, cfg.History.Path)
	setString(&settings.HistoryLockPath, cfg.History.LockPath)

	return nil
}

func applyEnv(settings *Settings) error {
	if v := os.Getenv("COINCTL_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("COINCTL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	setString(&settings.Endpoint, os.Getenv("JRPC_ENDPOINT"))
	setString(&settings.Endpoint, os.Getenv("COINCTL_ENDPOINT"))
	setString(&settings.Token, os.Getenv("COINCTL_TOKEN"))
	setString(&settings.Template, os.Getenv("COINCTL_TEMPLATE"))
	if v := os.Getenv("COINCTL_MAX_FEE"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse COINCTL_MAX_FEE: %w", err)
		}
		settings.MaxFee = n
	}
	setString(&settings.DefaultAccount, os.Getenv("COINCTL_DEFAULT_ACCOUNT"))
	setString(&settings.Account, os.Getenv("COINCTL_ACCOUNT"))
	setString(&settings.AdminBadge, os.Getenv("COINCTL_ADMIN_BADGE"))
	setString(&settings.UserBadge, os.Getenv("COINCTL_USER_BADGE"))
	setString(&settings.Resource, os.Getenv("COINCTL_RESOURCE"))
	setString(&settings.InputsMode, strings.ToLower(os.Getenv("COINCTL_INPUTS_MODE")))
	if v := os.Getenv("COINCTL_READ_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.ReadOnly = b
		}
	}
	setString(&settings.CredentialsPath, os.Getenv("COINCTL_CREDENTIALS_PATH"))
	setString(&settings.CredentialsLockPath, os.Getenv("COINCTL_CREDENTIALS_LOCK_PATH"))
	if v := os.Getenv("COINCTL_NO_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.HistoryEnabled = !b
		}
	}
	setString(&settings.HistoryPath, os.Getenv("COINCTL_HISTORY_PATH"))
	setString(&settings.HistoryLockPath, os.Getenv("COINCTL_HISTORY_LOCK_PATH"))
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		settings.SelectFields = splitList(flags.Select)
	}
	settings.ResultsOnly = flags.ResultsOnly

	if strings.TrimSpace(flags.EnableCommands) != "" {
		settings.EnableCommands = splitList(flags.EnableCommands)
	}
	if flags.ReadOnly {
		settings.ReadOnly = true
	}
	settings.Verbose = flags.Verbose

	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	setString(&settings.Endpoint, flags.Endpoint)
	setString(&settings.Token, flags.Token)
	setString(&settings.Template, flags.Template)
	if flags.MaxFee >= 0 {
		settings.MaxFee = uint64(flags.MaxFee)
	}
	if flags.DryRun {
		settings.DryRun = true
	}
	if flags.DumpBuckets {
		settings.DumpBuckets = true
	}
	setString(&settings.DefaultAccount, flags.DefaultAccount)
	setString(&settings.Account, flags.Account)
	setString(&settings.AdminBadge, flags.AdminBadge)
	setString(&settings.UserBadge, flags.UserBadge)
	setString(&settings.Resource, flags.Resource)
	setString(&settings.InputsMode, strings.ToLower(flags.InputsMode))
	if len(flags.Inputs) > 0 {
		settings.ExtraInputs = append(settings.ExtraInputs, flags.Inputs...)
	}
	if flags.NoHistory {
		settings.HistoryEnabled = false
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	if settings.InputsMode != "full" && settings.InputsMode != "compat" {
		return fmt.Errorf("inputs mode must be full or compat")
	}

	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if f := strings.TrimSpace(part); f != "" {
			out = append(out, f)
		}
	}
	return out
}
