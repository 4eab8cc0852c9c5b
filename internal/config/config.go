package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultConfigPath = "/etc/birdbot/config.ini"
	configPathEnv     = "BIRDBOT_CONFIG"
)

type Config struct {
	AppEnv      string
	ProductName string

	SlackAppID         string
	SlackClientID      string
	SlackClientSecret  string
	SlackSigningSecret string
	SlackScopes        string
	SlackRedirectURL   string
	SlackPort          int

	Subreddit       string
	ImageExtensions []string
	Triggers        []string

	DBURL      string
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

func Load() (Config, error) {
	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		configPath = defaultConfigPath
	}

	ini, err := readINI(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", configPath, err)
	}

	cfg := Config{}
	cfg.AppEnv = ini.getDefault("app", "env", "production")
	cfg.ProductName = ini.getDefault("app", "product_name", "birdbot")

	// Slack (prefer config.ini, fall back to env vars for compatibility).
	cfg.SlackAppID = firstNonEmpty(ini.get("slack", "app_id"), os.Getenv("SLACK_APP_ID"))
	cfg.SlackClientID = firstNonEmpty(ini.get("slack", "client_id"), os.Getenv("SLACK_CLIENT_ID"))
	cfg.SlackClientSecret = firstNonEmpty(ini.get("slack", "client_secret"), os.Getenv("SLACK_CLIENT_SECRET"))
	cfg.SlackSigningSecret = firstNonEmpty(ini.get("slack", "signing_secret"), os.Getenv("SLACK_SIGNING_SECRET"))
	cfg.SlackScopes = firstNonEmpty(ini.get("slack", "scopes"), os.Getenv("SLACK_SCOPES"))
	cfg.SlackRedirectURL = firstNonEmpty(ini.get("slack", "redirect_url"), os.Getenv("SLACK_REDIRECT_URL"))
	cfg.SlackPort = firstNonEmptyIntDefault(8085, ini.get("slack", "port"), os.Getenv("SLACK_PORT"))

	cfg.Subreddit = ini.getDefault("reddit", "subreddit", "birdpics")
	cfg.ImageExtensions = splitList(ini.getDefault("reddit", "image_extensions", "jpg,jpeg,png,gif"))
	cfg.Triggers = splitList(ini.get("reddit", "triggers"))

	cfg.DBURL = firstNonEmpty(ini.get("db", "url"), ini.get("db", "database_url"))
	cfg.DBHost = ini.getDefault("db", "host", "127.0.0.1")
	cfg.DBPort = ini.getIntDefault("db", "port", 5432)
	cfg.DBName = ini.getDefault("db", "name", "birdbot")
	cfg.DBUser = ini.getDefault("db", "user", "birdbot")
	cfg.DBPassword = ini.get("db", "password")
	cfg.DBSSLMode = ini.getDefault("db", "sslmode", "prefer")

	if cfg.SlackSigningSecret == "" {
		return cfg, errors.New("slack.signing_secret must be set in config.ini (or SLACK_SIGNING_SECRET)")
	}
	if len(cfg.Triggers) == 0 {
		return cfg, errors.New("reddit.triggers must list at least one keyword")
	}

	return cfg, nil
}

func (c Config) DBConnString() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBUser,
		c.DBPassword,
		c.DBSSLMode,
	)
}

type iniData struct {
	sections map[string]map[string]string
}

func readINI(path string) (iniData, error) {
	file, err := os.Open(path)
	if err != nil {
		return iniData{}, err
	}
	defer file.Close()

	data := iniData{sections: map[string]map[string]string{}}
	section := "default"
	data.sections[section] = map[string]string{}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			section = strings.ToLower(section)
			if section == "" {
				return iniData{}, fmt.Errorf("invalid section header at line %d", lineNo)
			}
			if _, ok := data.sections[section]; !ok {
				data.sections[section] = map[string]string{}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return iniData{}, fmt.Errorf("invalid line %d: %q", lineNo, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return iniData{}, fmt.Errorf("empty key at line %d", lineNo)
		}
		value = strings.TrimSpace(value)
		value = trimQuotes(value)
		data.sections[section][key] = value
	}
	if err := scanner.Err(); err != nil {
		return iniData{}, err
	}
	return data, nil
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	if value[0] == '\'' && value[len(value)-1] == '\'' {
		return value[1 : len(value)-1]
	}
	return value
}

func (ini iniData) get(section, key string) string {
	if len(ini.sections) == 0 {
		return ""
	}
	section = strings.ToLower(section)
	key = strings.ToLower(key)
	if section == "" {
		section = "default"
	}
	if values, ok := ini.sections[section]; ok {
		return values[key]
	}
	return ""
}

func (ini iniData) getDefault(section, key, fallback string) string {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	return value
}

func (ini iniData) getIntDefault(section, key string, fallback int) int {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func firstNonEmptyInt(values ...string) (int, bool) {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return 0, false
}

func firstNonEmptyIntDefault(fallback int, values ...string) int {
	if parsed, ok := firstNonEmptyInt(values...); ok {
		return parsed
	}
	return fallback
}
