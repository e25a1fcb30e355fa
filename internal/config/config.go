// Package config loads and validates agent configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Config holds the process-wide settings. Per-agent values are derived with
// Agents.
type Config struct {
	// Game server settings.
	BaseURL        string
	GameID         string
	TeamID         string // default team for every role
	PlayerID       string
	Token          string // default bearer token for every role
	RequestTimeout time.Duration

	// Per-role overrides from HAWKOPS_<ROLE>_TEAM_ID and HAWKOPS_<ROLE>_API_TOKEN.
	RoleTeams  map[model.AgentRole]string
	RoleTokens map[model.AgentRole]string

	// Agent settings.
	Roles         []model.AgentRole
	Personality   model.Personality
	Personalities map[model.AgentRole]model.Personality
	PollInterval  time.Duration
	ActionDelay   time.Duration
	CycleTimeout  time.Duration
	Verbose       bool
	SLARiskWindow time.Duration
	AlertBreaches int

	// Evaluator provider settings.
	LLMProvider       string // "auto", "gemini", "openai" or "none"
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	LLMCallsPerMinute int
	LLMTimeout        time.Duration
	MinPlanLength     int

	// Decision journal: "", "none", a SQLite path or a postgres:// URL.
	JournalDSN string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	LogLevel string
}

// AgentConfig is everything one agent needs. It is fixed for the agent's
// lifetime.
type AgentConfig struct {
	Name         string
	Role         model.AgentRole
	GameID       string
	TeamID       string
	PlayerID     string
	Token        string
	BaseURL      string
	Personality  model.Personality
	PollInterval time.Duration
	ActionDelay  time.Duration
	CycleTimeout time.Duration
	Verbose      bool
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first. Load does not
// require game credentials; callers that start agents call Validate.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		BaseURL:      envStr("HAWKOPS_BASE_URL", "http://localhost:3000"),
		GameID:       envStr("HAWKOPS_GAME_ID", ""),
		TeamID:       envStr("HAWKOPS_TEAM_ID", ""),
		PlayerID:     envStr("HAWKOPS_PLAYER_ID", ""),
		Token:        envStr("HAWKOPS_API_TOKEN", ""),
		LLMProvider:  envStr("HAWKOPS_LLM_PROVIDER", "auto"),
		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		GeminiModel:  envStr("HAWKOPS_GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey: envStr("OPENAI_API_KEY", ""),
		OpenAIModel:  envStr("HAWKOPS_OPENAI_MODEL", "gpt-4o-mini"),
		JournalDSN:   envStr("HAWKOPS_JOURNAL_DSN", "hawkops-journal.db"),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "hawkops-agents"),
		LogLevel:     envStr("HAWKOPS_LOG_LEVEL", "info"),
		RoleTeams:    map[model.AgentRole]string{},
		RoleTokens:   map[model.AgentRole]string{},
	}

	var err error
	cfg.RequestTimeout, err = envDuration("HAWKOPS_REQUEST_TIMEOUT", 15*time.Second)
	collect(err)
	cfg.PollInterval, err = envDuration("HAWKOPS_POLL_INTERVAL", 30*time.Second)
	collect(err)
	cfg.ActionDelay, err = envDuration("HAWKOPS_ACTION_DELAY", 2*time.Second)
	collect(err)
	cfg.CycleTimeout, err = envDuration("HAWKOPS_CYCLE_TIMEOUT", 2*time.Minute)
	collect(err)
	cfg.SLARiskWindow, err = envDuration("HAWKOPS_SLA_RISK_WINDOW", 30*time.Minute)
	collect(err)
	cfg.LLMTimeout, err = envDuration("HAWKOPS_LLM_TIMEOUT", 20*time.Second)
	collect(err)
	cfg.Verbose, err = envBool("HAWKOPS_VERBOSE", false)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	collect(err)
	cfg.AlertBreaches, err = envInt("HAWKOPS_ALERT_BREACHES", 2)
	collect(err)
	cfg.LLMCallsPerMinute, err = envInt("HAWKOPS_LLM_CALLS_PER_MINUTE", 30)
	collect(err)
	cfg.MinPlanLength, err = envInt("HAWKOPS_MIN_PLAN_LENGTH", 0)
	collect(err)

	cfg.Roles, err = ParseRoles(envStr("HAWKOPS_ROLES", "service_desk,tech_ops,management"))
	collect(envErr("HAWKOPS_ROLES", err))
	cfg.Personality, err = model.ParsePersonality(envStr("HAWKOPS_PERSONALITY", "balanced"))
	collect(envErr("HAWKOPS_PERSONALITY", err))
	cfg.Personalities, err = ParsePersonalities(envStr("HAWKOPS_PERSONALITIES", ""))
	collect(envErr("HAWKOPS_PERSONALITIES", err))

	for _, role := range model.AllRoles() {
		prefix := "HAWKOPS_" + strings.ToUpper(string(role)) + "_"
		if v := envStr(prefix+"TEAM_ID", ""); v != "" {
			cfg.RoleTeams[role] = v
		}
		if v := envStr(prefix+"API_TOKEN", ""); v != "" {
			cfg.RoleTokens[role] = v
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks that the settings needed to start agents are present and
// coherent.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_BASE_URL is required"))
	}
	if c.GameID == "" {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_GAME_ID is required"))
	}
	if len(c.Roles) == 0 {
		errs = append(errs, fmt.Errorf("config: at least one role is required"))
	}
	for _, role := range c.Roles {
		if c.teamFor(role) == "" {
			errs = append(errs, fmt.Errorf("config: no team for %s (set HAWKOPS_TEAM_ID or HAWKOPS_%s_TEAM_ID)",
				role, strings.ToUpper(string(role))))
		}
		if c.tokenFor(role) == "" {
			errs = append(errs, fmt.Errorf("config: no API token for %s (set HAWKOPS_API_TOKEN or HAWKOPS_%s_API_TOKEN)",
				role, strings.ToUpper(string(role))))
		}
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_POLL_INTERVAL must be positive"))
	}
	if c.ActionDelay < 0 {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_ACTION_DELAY must not be negative"))
	}
	if c.CycleTimeout > 0 && c.ActionDelay >= c.CycleTimeout {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_ACTION_DELAY must be shorter than HAWKOPS_CYCLE_TIMEOUT"))
	}
	if c.AlertBreaches < 0 {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_ALERT_BREACHES must not be negative"))
	}
	if c.LLMCallsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_LLM_CALLS_PER_MINUTE must not be negative"))
	}
	switch c.LLMProvider {
	case "", "auto", "gemini", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("config: HAWKOPS_LLM_PROVIDER %q is not one of auto, gemini, openai, none", c.LLMProvider))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: HAWKOPS_LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// Agents returns one AgentConfig per configured role, in role order.
func (c Config) Agents() []AgentConfig {
	out := make([]AgentConfig, 0, len(c.Roles))
	for _, role := range c.Roles {
		p, ok := c.Personalities[role]
		if !ok {
			p = c.Personality
		}
		out = append(out, AgentConfig{
			Name:         strings.ReplaceAll(string(role), "_", "-"),
			Role:         role,
			GameID:       c.GameID,
			TeamID:       c.teamFor(role),
			PlayerID:     c.PlayerID,
			Token:        c.tokenFor(role),
			BaseURL:      c.BaseURL,
			Personality:  p,
			PollInterval: c.PollInterval,
			ActionDelay:  c.ActionDelay,
			CycleTimeout: c.CycleTimeout,
			Verbose:      c.Verbose,
		})
	}
	return out
}

func (c Config) teamFor(role model.AgentRole) string {
	if v := c.RoleTeams[role]; v != "" {
		return v
	}
	return c.TeamID
}

func (c Config) tokenFor(role model.AgentRole) string {
	if v := c.RoleTokens[role]; v != "" {
		return v
	}
	return c.Token
}

// ParseRoles parses a comma-separated role list. Duplicates are dropped.
func ParseRoles(s string) ([]model.AgentRole, error) {
	var roles []model.AgentRole
	seen := map[model.AgentRole]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := model.ParseRole(part)
		if err != nil {
			return nil, err
		}
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// ParsePersonalities parses "role=personality" pairs separated by commas,
// e.g. "management=cautious,tech_ops=aggressive".
func ParsePersonalities(s string) (map[model.AgentRole]model.Personality, error) {
	out := map[model.AgentRole]model.Personality{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not role=personality", part)
		}
		r, err := model.ParseRole(k)
		if err != nil {
			return nil, err
		}
		p, err := model.ParsePersonality(v)
		if err != nil {
			return nil, err
		}
		out[r] = p
	}
	return out, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
