package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliplingo/internal/logging"
)

// configDirs lists the config file search path in search order.
func configDirs() []string {
	dirs := []string{"/etc/cliplingo"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "cliplingo"))
	}
	return dirs
}

// loadDotenv loads .env files into the process environment. Variables that
// are already set win; of two files, the first listed wins.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("dotenv %s: %w", p, err)
		}
	}
	return nil
}

func dotenvPaths() []string {
	paths := []string{".env"}
	dirs := configDirs()
	return append(paths, filepath.Join(dirs[len(dirs)-1], ".env"))
}

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPLINGO_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPLINGO_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	if err := loadDotenv(dotenvPaths()...); err != nil {
		return err
	}

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("cliplingo")
		v.SetConfigType("toml")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPLINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "log at debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	logging.Setup(logging.ParseFormat(v.GetString("log-format")), logging.LevelFor(v.GetBool("debug")))
}
