package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/graceful/logger"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads path into the process environment. Variables that are
// already set win over the file.
func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoadEnv loads .env files into the process environment, defaulting to
// ./.env. A missing file is not an error; malformed files are.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// Resolver finds the config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise the first
// existing candidate for each file.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(envCandidates(serviceName))
	}
	return resolved
}

func (cr *Resolver) first(paths []string) string {
	for _, p := range paths {
		if cr.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("./config/%s.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
}

func envCandidates(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		fmt.Sprintf("./.env.%s", serviceName),
		"./.env",
	}
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into cfg. The YAML file is
// the base, the .env file feeds the environment, and environment variables
// override both: SHUTDOWN_TIMEOUT sets shutdown.timeout.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)
	log := logger.WithComponent("config")

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("Config file loaded", logger.Fields("file", files.ConfigFile))
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("Failed to load env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	v.AutomaticEnv()
	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv sets every environment variable under each dotted key it could
// stand for, so nested fields pick it up regardless of underscores in
// their names.
func bindEnv(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || key == "" {
			continue
		}
		for _, k := range envKeyVariants(key) {
			v.Set(k, value)
		}
	}
}

// envKeyVariants maps SHUTDOWN_FLUSH_TIMEOUT to shutdown_flush_timeout,
// shutdown.flush_timeout, shutdown_flush.timeout and shutdown.flush.timeout.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants,
			strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"),
			strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "."),
		)
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, k := range variants {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
