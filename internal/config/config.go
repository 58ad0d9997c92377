package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDomain     = "http://localhost:8000"
	DefaultListenAddr = "127.0.0.1:8000"
	DefaultAPIURL     = "http://127.0.0.1:8000"
	DefaultDBFileName = "imgproxy.db"
	DefaultBlobDir    = "blobs"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"

	DefaultMaxFileSizeMB      = 10.0
	DefaultMultipartMaxMemory = 8 * 1024 * 1024
	DefaultRateLimitRequests  = 100
	DefaultRateLimitWindow    = 60
	DefaultLoginMaxFailures   = 5
	DefaultLoginWindow        = 60
	DefaultLoginBlock         = 300
	DefaultExpireDays         = 30
	DefaultCleanupTime        = "03:00:00"
	MinSecretKeyLength        = 32
	MinPasswordLength         = 6

	configEnvKey = "IMGPROXY_CONFIG"
	envPrefix    = "IMGPROXY_"
)

// Placeholders shipped in sample configs. A server refuses to start with them.
var placeholderSecrets = []string{
	"CHANGE_THIS_TO_A_RANDOM_32_CHAR_STRING",
	"your_32_character_secret_key_here_change_this",
}

var placeholderPasswords = []string{
	"CHANGE_THIS_PASSWORD",
	"change_this_password",
}

var (
	cleanupTimePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	domainPattern      = regexp.MustCompile(`^https?://[a-zA-Z0-9\-._]+`)
	usernamePattern    = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)
)

// ServerConfig controls the HTTP listener and public URLs.
type ServerConfig struct {
	Domain          string `toml:"domain" yaml:"domain" json:"domain"`
	ListenAddr      string `toml:"listen_addr" yaml:"listen_addr" json:"listen_addr"`
	AllowRemote     bool   `toml:"allow_remote" yaml:"allow_remote" json:"allow_remote"`
	RequestTimeoutS int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
}

// UploadConfig limits accepted files.
type UploadConfig struct {
	MaxFileSizeMB      float64  `toml:"max_file_size_mb" yaml:"max_file_size_mb" json:"max_file_size_mb"`
	AllowedTypes       []string `toml:"allowed_types" yaml:"allowed_types" json:"allowed_types"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory" yaml:"multipart_max_memory" json:"multipart_max_memory"`
}

// RateLimitConfig bounds per-client request rates and credential guessing.
type RateLimitConfig struct {
	MaxRequests        int `toml:"max_requests" yaml:"max_requests" json:"max_requests"`
	WindowSeconds      int `toml:"window_seconds" yaml:"window_seconds" json:"window_seconds"`
	LoginMaxFailures   int `toml:"login_max_failures" yaml:"login_max_failures" json:"login_max_failures"`
	LoginWindowSeconds int `toml:"login_window_seconds" yaml:"login_window_seconds" json:"login_window_seconds"`
	LoginBlockSeconds  int `toml:"login_block_seconds" yaml:"login_block_seconds" json:"login_block_seconds"`
}

// SecurityConfig holds the token secret and request trust settings.
type SecurityConfig struct {
	SecretKey         string          `toml:"secret_key" yaml:"secret_key" json:"secret_key"`
	TrustProxyHeaders bool            `toml:"trust_proxy_headers" yaml:"trust_proxy_headers" json:"trust_proxy_headers"`
	AllowedOrigins    []string        `toml:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
	Upload            UploadConfig    `toml:"upload" yaml:"upload" json:"upload"`
	RateLimit         RateLimitConfig `toml:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// CleanupConfig controls retention and the background sweep.
type CleanupConfig struct {
	Enable     bool   `toml:"enable" yaml:"enable" json:"enable"`
	ExpireDays int    `toml:"expire_days" yaml:"expire_days" json:"expire_days"`
	Time       string `toml:"cleanup_time" yaml:"cleanup_time" json:"cleanup_time"`
	// IntervalMinutes, when positive, replaces the daily schedule.
	IntervalMinutes int `toml:"interval_minutes" yaml:"interval_minutes" json:"interval_minutes"`
}

// LoggingConfig selects log verbosity and handler.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// User is one entry of the flat credential list. PasswordHash (bcrypt)
// takes precedence over Password when both are set.
type User struct {
	Username     string `toml:"username" yaml:"username" json:"username"`
	Password     string `toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty"`
	PasswordHash string `toml:"password_hash,omitempty" yaml:"password_hash,omitempty" json:"password_hash,omitempty"`
}

// ClientConfig is used by CLI commands that talk to a running server.
type ClientConfig struct {
	APIURL   string `toml:"api_url" yaml:"api_url" json:"api_url"`
	Username string `toml:"username" yaml:"username" json:"username"`
	Password string `toml:"password" yaml:"password" json:"password"`
}

// Config defines runtime configuration for imgproxy.
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server" json:"server"`
	Security SecurityConfig `toml:"security" yaml:"security" json:"security"`
	Cleanup  CleanupConfig  `toml:"cleanup" yaml:"cleanup" json:"cleanup"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" json:"logging"`
	DBPath   string         `toml:"db_file" yaml:"db_file" json:"db_file"`
	BlobDir  string         `toml:"blob_dir" yaml:"blob_dir" json:"blob_dir"`
	Users    []User         `toml:"users" yaml:"users" json:"users"`
	Client   ClientConfig   `toml:"client" yaml:"client" json:"client"`

	// SourcePath is the file the config was read from, if any.
	SourcePath string `toml:"-" yaml:"-" json:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Domain:          DefaultDomain,
			ListenAddr:      DefaultListenAddr,
			RequestTimeoutS: 60,
		},
		Security: SecurityConfig{
			Upload: UploadConfig{
				MaxFileSizeMB:      DefaultMaxFileSizeMB,
				AllowedTypes:       []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
				MultipartMaxMemory: DefaultMultipartMaxMemory,
			},
			RateLimit: RateLimitConfig{
				MaxRequests:        DefaultRateLimitRequests,
				WindowSeconds:      DefaultRateLimitWindow,
				LoginMaxFailures:   DefaultLoginMaxFailures,
				LoginWindowSeconds: DefaultLoginWindow,
				LoginBlockSeconds:  DefaultLoginBlock,
			},
		},
		Cleanup: CleanupConfig{
			Enable:     true,
			ExpireDays: DefaultExpireDays,
			Time:       DefaultCleanupTime,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		DBPath:  DefaultDBFileName,
		BlobDir: DefaultBlobDir,
		Client: ClientConfig{
			APIURL: DefaultAPIURL,
		},
	}
}

// Retention is the lifetime of a record counted from its creation.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Cleanup.ExpireDays) * 24 * time.Hour
}

// MaxFileBytes converts the configured megabyte limit to bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Security.Upload.MaxFileSizeMB * 1024 * 1024)
}

// RateWindow is the sliding window length for request limiting.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Security.RateLimit.WindowSeconds) * time.Second
}

// RequestTimeout bounds each HTTP handler.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutS) * time.Second
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv(configEnvKey)); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".imgproxy.toml"), nil
}

// candidatePaths lists the files Load tries when no path is given.
func candidatePaths() []string {
	paths := []string{"imgproxy.toml", "imgproxy.yaml", "imgproxy.yml", "imgproxy.json", "config.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".imgproxy.toml"))
	}
	return paths
}

// Load reads defaults, then the config file, then environment overrides.
// An explicit path (or IMGPROXY_CONFIG) must exist; otherwise the first
// existing candidate file is used. Load does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(configEnvKey))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.SourcePath = path
	} else {
		for _, candidate := range candidatePaths() {
			loaded, err := loadFileIfExists(candidate, &cfg)
			if err != nil {
				return nil, err
			}
			if loaded {
				cfg.SourcePath = candidate
				break
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	loaded, err := loadFileIfExists(path, cfg)
	if err != nil {
		return err
	}
	if !loaded {
		return fmt.Errorf("config file %s not found", path)
	}
	return nil
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if err := decode(path, data, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		raw := strings.TrimSpace(os.Getenv(envPrefix + key))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s must be an integer", envPrefix, key))
			return
		}
		*dst = v
	}
	flag := func(key string, dst *bool) {
		raw := strings.TrimSpace(os.Getenv(envPrefix + key))
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s must be true or false", envPrefix, key))
			return
		}
		*dst = v
	}

	str("SECRET_KEY", &c.Security.SecretKey)
	str("DOMAIN", &c.Server.Domain)
	str("ADDR", &c.Server.ListenAddr)
	str("DB", &c.DBPath)
	str("BLOB_DIR", &c.BlobDir)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("CLEANUP_TIME", &c.Cleanup.Time)
	str("API_URL", &c.Client.APIURL)
	str("USERNAME", &c.Client.Username)
	str("PASSWORD", &c.Client.Password)
	num("CLEANUP_EXPIRE_DAYS", &c.Cleanup.ExpireDays)
	flag("CLEANUP_ENABLE", &c.Cleanup.Enable)
	flag("ALLOW_REMOTE", &c.Server.AllowRemote)

	if raw := strings.TrimSpace(os.Getenv(envPrefix + "MAX_FILE_SIZE_MB")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_FILE_SIZE_MB must be a number", envPrefix))
		} else {
			c.Security.Upload.MaxFileSizeMB = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv(envPrefix + "ALLOWED_TYPES")); raw != "" {
		c.Security.Upload.AllowedTypes = splitCSV(raw)
	}

	username := strings.TrimSpace(os.Getenv(envPrefix + "DEFAULT_USERNAME"))
	password := os.Getenv(envPrefix + "DEFAULT_PASSWORD")
	if username != "" && password != "" && (len(c.Users) == 0 || c.Users[0].Username == "") {
		c.Users = []User{{Username: username, Password: password}}
	}

	return errors.Join(errs...)
}

func (c *Config) normalize() {
	c.Server.Domain = strings.TrimRight(strings.TrimSpace(c.Server.Domain), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Security.Upload.MultipartMaxMemory <= 0 {
		c.Security.Upload.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Server.RequestTimeoutS <= 0 {
		c.Server.RequestTimeoutS = 60
	}
	c.Security.Upload.AllowedTypes = normalizeMediaTypes(c.Security.Upload.AllowedTypes)
}

// Validate checks everything a server needs and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Domain == "" {
		add("server.domain must not be empty")
	} else if !domainPattern.MatchString(c.Server.Domain) {
		add("server.domain must start with http:// or https://")
	} else if _, err := url.Parse(c.Server.Domain); err != nil {
		add("server.domain is not a valid URL: %v", err)
	}
	if err := validateListenAddr(c.Server.ListenAddr, c.Server.AllowRemote); err != nil {
		add("server.listen_addr: %v", err)
	}

	if c.Cleanup.ExpireDays < 1 {
		add("cleanup.expire_days must be an integer >= 1")
	}
	if c.Cleanup.IntervalMinutes < 0 {
		add("cleanup.interval_minutes must be >= 0")
	}
	if !cleanupTimePattern.MatchString(c.Cleanup.Time) {
		add("cleanup.cleanup_time must be HH:MM:SS")
	} else if _, err := time.Parse(time.TimeOnly, c.Cleanup.Time); err != nil {
		add("cleanup.cleanup_time is not a valid time of day")
	}

	secret := c.Security.SecretKey
	switch {
	case secret == "":
		add("security.secret_key must be set")
	case contains(placeholderSecrets, secret):
		add("security.secret_key still has its placeholder value")
	case len(secret) < MinSecretKeyLength:
		add("security.secret_key must be at least %d characters", MinSecretKeyLength)
	}
	if c.Security.Upload.MaxFileSizeMB <= 0 {
		add("security.upload.max_file_size_mb must be > 0")
	}
	if len(c.Security.Upload.AllowedTypes) == 0 {
		add("security.upload.allowed_types must list at least one media type")
	}
	rl := c.Security.RateLimit
	if rl.MaxRequests < 0 || rl.WindowSeconds < 0 {
		add("security.rate_limit values must be >= 0")
	}

	if len(c.Users) == 0 {
		add("at least one user must be configured")
	}
	seen := map[string]struct{}{}
	for i, user := range c.Users {
		if user.Username == "" {
			add("users[%d].username must not be empty", i)
			continue
		}
		if !usernamePattern.MatchString(user.Username) {
			add("users[%d].username %q contains unsupported characters", i, user.Username)
		}
		if _, dup := seen[user.Username]; dup {
			add("duplicate username: %s", user.Username)
		}
		seen[user.Username] = struct{}{}
		switch {
		case user.PasswordHash != "":
		case user.Password == "":
			add("user %s needs a password or password_hash", user.Username)
		case contains(placeholderPasswords, user.Password):
			add("user %s still has the placeholder password", user.Username)
		case len(user.Password) < MinPasswordLength:
			add("user %s password must be at least %d characters", user.Username, MinPasswordLength)
		}
	}

	if c.DBPath == "" {
		add("db_file must not be empty")
	}
	if c.BlobDir == "" {
		add("blob_dir must not be empty")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		add("logging.format must be text or json")
	}

	return errors.Join(errs...)
}

func validateListenAddr(addr string, allowRemote bool) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if allowRemote {
		return nil
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("refusing non-loopback address %q without allow_remote", addr)
	}
	return nil
}

var allowedKeys = []string{
	"server.domain",
	"server.listen_addr",
	"server.allow_remote",
	"server.request_timeout_seconds",
	"security.secret_key",
	"security.trust_proxy_headers",
	"security.allowed_origins",
	"security.upload.max_file_size_mb",
	"security.upload.allowed_types",
	"security.rate_limit.max_requests",
	"security.rate_limit.window_seconds",
	"cleanup.enable",
	"cleanup.expire_days",
	"cleanup.cleanup_time",
	"cleanup.interval_minutes",
	"logging.level",
	"logging.format",
	"db_file",
	"blob_dir",
	"client.api_url",
	"client.username",
	"client.password",
}

// AllowedKeys returns the set of keys `config get/set` accepts.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	return contains(allowedKeys, key)
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "server.domain":
		return c.Server.Domain, nil
	case "server.listen_addr":
		return c.Server.ListenAddr, nil
	case "server.allow_remote":
		return strconv.FormatBool(c.Server.AllowRemote), nil
	case "server.request_timeout_seconds":
		return strconv.Itoa(c.Server.RequestTimeoutS), nil
	case "security.secret_key":
		if c.Security.SecretKey == "" {
			return "", nil
		}
		return "(set)", nil
	case "security.trust_proxy_headers":
		return strconv.FormatBool(c.Security.TrustProxyHeaders), nil
	case "security.allowed_origins":
		return strings.Join(c.Security.AllowedOrigins, ","), nil
	case "security.upload.max_file_size_mb":
		return strconv.FormatFloat(c.Security.Upload.MaxFileSizeMB, 'f', -1, 64), nil
	case "security.upload.allowed_types":
		return strings.Join(c.Security.Upload.AllowedTypes, ","), nil
	case "security.rate_limit.max_requests":
		return strconv.Itoa(c.Security.RateLimit.MaxRequests), nil
	case "security.rate_limit.window_seconds":
		return strconv.Itoa(c.Security.RateLimit.WindowSeconds), nil
	case "cleanup.enable":
		return strconv.FormatBool(c.Cleanup.Enable), nil
	case "cleanup.expire_days":
		return strconv.Itoa(c.Cleanup.ExpireDays), nil
	case "cleanup.cleanup_time":
		return c.Cleanup.Time, nil
	case "cleanup.interval_minutes":
		return strconv.Itoa(c.Cleanup.IntervalMinutes), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "db_file":
		return c.DBPath, nil
	case "blob_dir":
		return c.BlobDir, nil
	case "client.api_url":
		return c.Client.APIURL, nil
	case "client.username":
		return c.Client.Username, nil
	case "client.password":
		if c.Client.Password == "" {
			return "", nil
		}
		return "(set)", nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".toml" {
		return fmt.Errorf("config set only edits TOML files, got %s", path)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "server.allow_remote", "security.trust_proxy_headers", "cleanup.enable":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "cleanup.expire_days", "server.request_timeout_seconds":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "security.rate_limit.max_requests", "security.rate_limit.window_seconds", "cleanup.interval_minutes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "security.upload.max_file_size_mb":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive number", key)
		}
		return parsed, nil
	case "cleanup.cleanup_time":
		if _, err := time.Parse(time.TimeOnly, value); err != nil || !cleanupTimePattern.MatchString(value) {
			return nil, fmt.Errorf("%s must be HH:MM:SS", key)
		}
		return value, nil
	case "security.allowed_origins", "security.upload.allowed_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func normalizeMediaTypes(rawValues []string) []string {
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		parsed, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		normalized := strings.ToLower(parsed)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
