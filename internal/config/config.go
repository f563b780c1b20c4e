package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	DBPath        string
	Addr          string
	LogPath       string
	JWTSecret     string
	RegisterLimit int
	LoginLimit    int
	RateWindow    time.Duration
	SweepInterval time.Duration
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:        "najdeno.sqlite3",
		Addr:          ":8080",
		RegisterLimit: 5,
		LoginLimit:    10,
		RateWindow:    time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// EnvFileKey names the variable holding the .env path (default ".env").
const EnvFileKey = "NAJDENO_ENV_FILE"

const usage = `Usage: najdeno [flags]

Flags:
  -d, -db <path>              SQLite database path (default: najdeno.sqlite3)
  -a, -addr <host:port>       listen address (default: :8080)
  -l, -log <path>             log file path (default: no file, stdout/stderr only)
      -register-limit <n>     registrations per client per window (default: 5)
      -login-limit <n>        logins per client per window (default: 10)
      -rate-window <dur>      rate limit window (default: 1m)
      -sweep-interval <dur>   rate limiter cleanup interval (default: 5m)
  -h, -help                   show this help and exit

Every flag can also be set in the environment or a .env file as
NAJDENO_DB, NAJDENO_ADDR, NAJDENO_LOG, NAJDENO_REGISTER_LIMIT,
NAJDENO_LOGIN_LIMIT, NAJDENO_RATE_WINDOW and NAJDENO_SWEEP_INTERVAL.
NAJDENO_JWT_SECRET sets the token signing secret; without it a secret is
generated and kept in the database.
`

// Load reads the settings. Command-line flags override the process
// environment, which overrides the .env file, which overrides defaults.
// It returns flag.ErrHelp if help was requested.
func Load(args []string, stdout io.Writer) (*Config, error) {
	env, err := readEnvFile()
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	flags := flag.NewFlagSet("najdeno", flag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.Usage = func() { fmt.Fprint(stdout, usage) }

	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	flags.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	flags.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	flags.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	flags.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	flags.IntVar(&cfg.RegisterLimit, "register-limit", cfg.RegisterLimit, "")
	flags.IntVar(&cfg.LoginLimit, "login-limit", cfg.LoginLimit, "")
	flags.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "")
	flags.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnvFile loads the optional .env file.
func readEnvFile() (map[string]string, error) {
	path := os.Getenv(EnvFileKey)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("NAJDENO_DB", &c.DBPath)
	str("NAJDENO_ADDR", &c.Addr)
	str("NAJDENO_LOG", &c.LogPath)
	str("NAJDENO_JWT_SECRET", &c.JWTSecret)

	ints := []struct {
		key string
		dst *int
	}{
		{"NAJDENO_REGISTER_LIMIT", &c.RegisterLimit},
		{"NAJDENO_LOGIN_LIMIT", &c.LoginLimit},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", e.key, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"NAJDENO_RATE_WINDOW", &c.RateWindow},
		{"NAJDENO_SWEEP_INTERVAL", &c.SweepInterval},
	}
	for _, e := range durations {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", e.key, err)
		}
		*e.dst = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.RegisterLimit < 1 || c.LoginLimit < 1 {
		return errors.New("rate limits must be at least 1")
	}
	if c.RateWindow <= 0 || c.SweepInterval <= 0 {
		return errors.New("rate window and sweep interval must be positive")
	}
	return nil
}
