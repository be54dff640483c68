package config

import (
	"errors"
	"flag"
	"fmt"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Host is the only address the server listens on.
const Host = "127.0.0.1"

type Paths struct {
	Templates string
	Static    string
	Images    string
	Robots    string
}

type ServerConfig struct {
	RateLimit         float64
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type Config struct {
	Port     int
	Host     string
	Root     string
	LogLevel slog.Level
	Server   ServerConfig
	Paths
}

type yamlConfigData struct {
	Server struct {
		RateLimit         float64       `yaml:"rate_limit"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Paths struct {
		Templates string `yaml:"templates"`
		Static    string `yaml:"static"`
		Images    string `yaml:"images"`
		Robots    string `yaml:"robots"`
	} `yaml:"paths"`
}

func defaultYamlConfigData() yamlConfigData {
	var d yamlConfigData
	d.Server.ReadHeaderTimeout = 10 * time.Second
	d.Server.ShutdownTimeout = 5 * time.Second
	d.Logging.Level = "info"
	d.Paths.Templates = "public/templates"
	d.Paths.Static = "public/static"
	d.Paths.Images = "public/images"
	d.Paths.Robots = "public/robots.txt"
	return d
}

// Load parses command line arguments (without the program name) and builds the
// configuration. The port is validated before any file is read.
func Load(args []string) (*Config, error) {
	port, err := parseFlags(args)
	if err != nil {
		return nil, err
	}

	rootPath := getEnv("ROOT_PATH", ".")

	err = godotenv.Load(filepath.Join(rootPath, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	settings := defaultYamlConfigData()
	yamlFile, err := os.ReadFile(filepath.Join(rootPath, "settings.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings.yaml: %w", err)
	default:
		if err := yaml.Unmarshal(yamlFile, &settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings.yaml: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", settings.Logging.Level))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return &Config{
		Port:     port,
		Host:     Host,
		Root:     rootPath,
		LogLevel: level,
		Server: ServerConfig{
			RateLimit:         settings.Server.RateLimit,
			ReadHeaderTimeout: settings.Server.ReadHeaderTimeout,
			ShutdownTimeout:   settings.Server.ShutdownTimeout,
		},
		Paths: Paths{
			Templates: resolve(rootPath, settings.Paths.Templates),
			Static:    resolve(rootPath, settings.Paths.Static),
			Images:    resolve(rootPath, settings.Paths.Images),
			Robots:    resolve(rootPath, settings.Paths.Robots),
		},
	}, nil
}

func parseFlags(args []string) (int, error) {
	flags := flag.NewFlagSet("websurfx", flag.ContinueOnError)
	var port string
	usage := fmt.Sprintf("port number in range [%d-%d] to launch the server on", MinPort, MaxPort)
	flags.StringVar(&port, "port", DefaultPort, usage)
	flags.StringVar(&port, "p", DefaultPort, "shorthand for --port")

	if err := flags.Parse(args); err != nil {
		return 0, err
	}
	if flags.NArg() > 0 {
		return 0, fmt.Errorf("unexpected arguments: %q", flags.Args())
	}
	return ParsePort(port)
}

// ServerAddress returns the listen address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
