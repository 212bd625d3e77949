package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"docnexus/internal/domain"
)

// DefaultBaseURL is the hosted DocNexus backend.
const DefaultBaseURL = "https://docnexus-py.onrender.com/"

// encPrefix marks a value encrypted with EncryptValue.
const encPrefix = "enc:"

// dotEnvFile is loaded from the working directory before env overrides apply.
var dotEnvFile = ".env"

// Config is the client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Stream  StreamConfig  `yaml:"stream"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Session SessionConfig `yaml:"session"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	UI      UIConfig      `yaml:"ui"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	// ResponseHeaderTimeout bounds the wait for response headers. Zero
	// waits as long as the request context allows.
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	// RequestTimeout is the deadline for JSON calls. Streamed chat turns
	// and uploads are not subject to it.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Pool           PoolConfig    `yaml:"pool"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// AuthConfig seeds credentials. A token here takes precedence over the
// session store, which is useful for scripts.
type AuthConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// StreamConfig tunes the chat stream decoder.
type StreamConfig struct {
	FlushTrailing bool `yaml:"flush_trailing"`
	MaxLineBytes  int  `yaml:"max_line_bytes"`
}

// IngestConfig holds upload and task polling settings.
type IngestConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollBurst      int           `yaml:"poll_burst"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// SessionConfig locates the local session database.
type SessionConfig struct {
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	RenderMarkdown bool `yaml:"render_markdown"`
	ASCIISymbols   bool `yaml:"ascii_symbols"`
}

// HomeDir returns $HOME/.docnexus, or ".docnexus" if $HOME cannot be
// determined.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docnexus"
	}
	return filepath.Join(home, ".docnexus")
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// DefaultLogFile is where the TUI writes logs when output is "stderr".
func DefaultLogFile() string {
	return filepath.Join(HomeDir(), "docnexus.log")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			ConnTimeout:    30 * time.Second,
			RequestTimeout: 60 * time.Second,
			Pool: PoolConfig{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     16,
				IdleConnTimeout:     90 * time.Second,
			},
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Stream: StreamConfig{
			MaxLineBytes: 1 << 20,
		},
		Ingest: IngestConfig{
			PollInterval:   2 * time.Second,
			PollBurst:      1,
			MaxUploadBytes: 50 << 20,
		},
		Session: SessionConfig{
			Path: filepath.Join(HomeDir(), "session.db"),
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
		UI: UIConfig{
			RenderMarkdown: true,
		},
	}
}

// Load reads a YAML config file, applies .env and env var overrides, and
// decrypts secrets. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewDomainError("config.load", domain.ErrConfigLoad, fmt.Sprintf("read %s: %v", dotEnvFile, err))
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults
	case err != nil:
		return nil, domain.NewDomainError("config.load", domain.ErrConfigLoad, fmt.Sprintf("read config: %v", err))
	default:
		if err := validatePermissions(path); err != nil {
			return nil, domain.NewDomainError("config.load", domain.ErrConfigLoad, err.Error())
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.NewDomainError("config.load", domain.ErrConfigLoad, fmt.Sprintf("parse config: %v", err))
		}
	}

	ApplyEnvOverrides(cfg)

	if err := decryptSecrets(cfg, os.Getenv("DOCNEXUS_CONFIG_KEY")); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps DOCNEXUS_* env vars to config fields. Values that
// fail to parse are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCNEXUS_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("DOCNEXUS_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("DOCNEXUS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("DOCNEXUS_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("DOCNEXUS_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v, ok := envBool("DOCNEXUS_TRACER_ENABLED"); ok {
		cfg.Tracer.Enabled = v
	}
	if v := os.Getenv("DOCNEXUS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v, ok := envBool("DOCNEXUS_STREAM_FLUSH_TRAILING"); ok {
		cfg.Stream.FlushTrailing = v
	}
	if v := os.Getenv("DOCNEXUS_INGEST_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ingest.PollInterval = d
		}
	}
	if v := os.Getenv("DOCNEXUS_SESSION_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v, ok := envBool("DOCNEXUS_ASCII_SYMBOLS"); ok {
		cfg.UI.ASCIISymbols = v
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// decryptSecrets replaces "enc:" values with their plaintext. An encrypted
// value without a passphrase is an error rather than a silent bad token.
func decryptSecrets(cfg *Config, passphrase string) error {
	secrets := map[string]*string{
		"auth.token": &cfg.Auth.Token,
	}
	for name, fp := range secrets {
		if !strings.HasPrefix(*fp, encPrefix) {
			continue
		}
		if passphrase == "" {
			return domain.NewDomainError("config.decrypt", domain.ErrDecryption,
				name+" is encrypted but DOCNEXUS_CONFIG_KEY is not set")
		}
		plain, err := DecryptValue(strings.TrimPrefix(*fp, encPrefix), passphrase)
		if err != nil {
			return domain.NewDomainError("config.decrypt", domain.ErrDecryption, fmt.Sprintf("%s: %v", name, err))
		}
		*fp = plain
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a
// passphrase. The result has the form hex(salt):hex(nonce+ciphertext) and
// is stored in the config file behind the "enc:" prefix.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// DecryptValue reverses EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects a config file others can write to, since it
// may carry a token.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
