package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/billingops/azure-billing-export/internal/clock"
	"github.com/billingops/azure-billing-export/internal/dates"
)

// Supported authentication modes.
const (
	AuthTypeBearerToken       = "bearer_token"
	AuthTypeClientCredentials = "client_credentials"
)

// Default values applied when neither flags nor environment provide one.
const (
	DefaultAuthType          = AuthTypeBearerToken
	DefaultExportPath        = "output/azure_costs.csv"
	DefaultCostThreshold     = 0.0
	DefaultMaxDaysPerRequest = 366
	DefaultRequestTimeout    = 30 // seconds
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 2 // seconds
	DefaultLogLevel          = "info"
)

// Error reports invalid, missing, or contradictory configuration.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "configuration error: " + e.Reason
}

func errorf(format string, args ...any) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Config is the effective configuration for a single export run. Only the
// credential fields of the selected auth type are populated.
type Config struct {
	AuthType     string
	BearerToken  string
	TenantID     string
	ClientID     string
	ClientSecret string

	SubscriptionID string
	ResourceGroup  string
	Services       []string

	FromDate time.Time
	ToDate   time.Time

	OutputPath        string
	CostThreshold     float64
	MaxDaysPerRequest int
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	LogLevel          string
}

// Defaults holds environment-derived values used to seed CLI flag defaults,
// so that explicit flags always win over the environment.
type Defaults struct {
	AuthType       string
	BearerToken    string
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
	ResourceGroup  string
	Services       []string
	FromDate       string
	ToDate         string
	ExportPath     string
	CostThreshold  float64
	MaxDays        int
	RequestTimeout int
	MaxRetries     int
	RetryDelay     int
	LogLevel       string
}

// DefaultsFromEnv reads the environment (including anything a previously
// loaded .env file contributed) and fills the remaining gaps with built-in
// defaults. The date range defaults to January 1st of the current year
// through today.
func DefaultsFromEnv(clk clock.Clock) (*Defaults, error) {
	d := &Defaults{
		AuthType:       envOr("AUTH_TYPE", DefaultAuthType),
		BearerToken:    os.Getenv("AZURE_BEARER_TOKEN"),
		TenantID:       os.Getenv("AZURE_TENANT_ID"),
		ClientID:       os.Getenv("AZURE_CLIENT_ID"),
		ClientSecret:   os.Getenv("AZURE_CLIENT_SECRET"),
		SubscriptionID: os.Getenv("AZURE_SUBSCRIPTION_ID"),
		ResourceGroup:  os.Getenv("AZURE_RESOURCE_GROUP"),
		ExportPath:     envOr("DEFAULT_EXPORT_PATH", DefaultExportPath),
		LogLevel:       envOr("LOG_LEVEL", DefaultLogLevel),
	}

	now := dates.Midnight(clk.Now())
	d.FromDate = envOr("DEFAULT_FROM_DATE", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Format(dates.Layout))
	d.ToDate = envOr("DEFAULT_TO_DATE", now.Format(dates.Layout))

	for _, s := range strings.Split(os.Getenv("DEFAULT_SERVICES"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			d.Services = append(d.Services, s)
		}
	}

	var err error
	if d.CostThreshold, err = envFloat("COST_THRESHOLD", DefaultCostThreshold); err != nil {
		return nil, err
	}
	if d.MaxDays, err = envInt("MAX_DAYS_PER_REQUEST", DefaultMaxDaysPerRequest); err != nil {
		return nil, err
	}
	if d.RequestTimeout, err = envInt("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if d.MaxRetries, err = envInt("MAX_RETRIES", DefaultMaxRetries); err != nil {
		return nil, err
	}
	if d.RetryDelay, err = envInt("RETRY_DELAY", DefaultRetryDelay); err != nil {
		return nil, err
	}

	return d, nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errorf("invalid %s: must be an integer, got %q", key, val)
	}
	return i, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errorf("invalid %s: must be a number, got %q", key, val)
	}
	return f, nil
}

// Settings carries the raw values resolved from flags and environment,
// before validation.
type Settings struct {
	AuthType       string
	BearerToken    string
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
	ResourceGroup  string
	Services       []string
	FromDate       string
	ToDate         string
	OutputPath     string
	CostThreshold  float64
	MaxDays        int
	RequestTimeout int
	MaxRetries     int
	RetryDelay     int
	LogLevel       string
}

// New validates the settings and builds the effective configuration.
// Service entries that are not full resource IDs are expanded to cognitive
// services account IDs under the configured subscription and resource group.
func New(s Settings) (*Config, error) {
	cfg := &Config{
		AuthType:          s.AuthType,
		SubscriptionID:    s.SubscriptionID,
		ResourceGroup:     s.ResourceGroup,
		OutputPath:        s.OutputPath,
		CostThreshold:     s.CostThreshold,
		MaxDaysPerRequest: s.MaxDays,
		RequestTimeout:    time.Duration(s.RequestTimeout) * time.Second,
		MaxRetries:        s.MaxRetries,
		RetryDelay:        time.Duration(s.RetryDelay) * time.Second,
		LogLevel:          s.LogLevel,
	}

	switch s.AuthType {
	case AuthTypeBearerToken:
		if s.BearerToken == "" {
			return nil, errorf("bearer_token auth requires --bearer-token or AZURE_BEARER_TOKEN")
		}
		cfg.BearerToken = s.BearerToken
	case AuthTypeClientCredentials:
		var missing []string
		if s.TenantID == "" {
			missing = append(missing, "tenant-id")
		}
		if s.ClientID == "" {
			missing = append(missing, "client-id")
		}
		if s.ClientSecret == "" {
			missing = append(missing, "client-secret")
		}
		if len(missing) > 0 {
			return nil, errorf("client_credentials auth requires %s", strings.Join(missing, ", "))
		}
		cfg.TenantID = s.TenantID
		cfg.ClientID = s.ClientID
		cfg.ClientSecret = s.ClientSecret
	default:
		return nil, errorf("unknown auth type %q (expected %s or %s)",
			s.AuthType, AuthTypeBearerToken, AuthTypeClientCredentials)
	}

	if s.SubscriptionID == "" {
		return nil, errorf("subscription ID is required (--subscription-id or AZURE_SUBSCRIPTION_ID)")
	}
	if s.ResourceGroup == "" {
		return nil, errorf("resource group is required (--resource-group or AZURE_RESOURCE_GROUP)")
	}
	if len(s.Services) == 0 {
		return nil, errorf("at least one service is required (--services or DEFAULT_SERVICES)")
	}
	cfg.Services = normalizeServices(s.Services, s.SubscriptionID, s.ResourceGroup)

	var err error
	if cfg.FromDate, err = parseDate("from date", s.FromDate); err != nil {
		return nil, err
	}
	if cfg.ToDate, err = parseDate("to date", s.ToDate); err != nil {
		return nil, err
	}
	if cfg.FromDate.After(cfg.ToDate) {
		return nil, errorf("from date %s is after to date %s", s.FromDate, s.ToDate)
	}

	if cfg.CostThreshold < 0 {
		return nil, errorf("cost threshold cannot be negative, got %v", cfg.CostThreshold)
	}
	if cfg.MaxDaysPerRequest <= 0 {
		return nil, errorf("max days per request must be positive, got %d", cfg.MaxDaysPerRequest)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errorf("request timeout must be positive, got %v", s.RequestTimeout)
	}
	if cfg.MaxRetries < 1 {
		return nil, errorf("max retries must be at least 1, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay < 0 {
		return nil, errorf("retry delay cannot be negative, got %v", s.RetryDelay)
	}

	return cfg, nil
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errorf("%s is required in format YYYY-MM-DD", name)
	}
	t, err := time.Parse(dates.Layout, value)
	if err != nil {
		return time.Time{}, errorf("invalid %s %q: expected format YYYY-MM-DD", name, value)
	}
	return t, nil
}

// normalizeServices expands bare service names into full resource IDs.
// Entries that already start with /subscriptions/ are kept unchanged.
func normalizeServices(services []string, subscriptionID, resourceGroup string) []string {
	normalized := make([]string, 0, len(services))
	for _, svc := range services {
		if strings.HasPrefix(svc, "/subscriptions/") {
			normalized = append(normalized, svc)
			continue
		}
		normalized = append(normalized, fmt.Sprintf(
			"/subscriptions/%s/resourcegroups/%s/providers/microsoft.cognitiveservices/accounts/%s",
			subscriptionID, resourceGroup, svc))
	}
	return normalized
}
