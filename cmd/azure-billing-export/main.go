package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/billingops/azure-billing-export/internal/app"
	"github.com/billingops/azure-billing-export/internal/auth"
	"github.com/billingops/azure-billing-export/internal/azure"
	"github.com/billingops/azure-billing-export/internal/clock"
	"github.com/billingops/azure-billing-export/internal/config"
	"github.com/billingops/azure-billing-export/internal/export"
	"github.com/billingops/azure-billing-export/internal/logger"
	"github.com/billingops/azure-billing-export/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes, one per failure category.
const (
	exitFailure = 1
	exitConfig  = 2
	exitAuth    = 3
	exitFetch   = 4
	exitWrite   = 5
)

type options struct {
	authType       string
	bearerToken    string
	tenantID       string
	clientID       string
	clientSecret   string
	subscriptionID string
	resourceGroup  string
	services       []string
	fromDate       string
	toDate         string
	maxDays        int
	costThreshold  float64
	output         string
	logLevel       string
}

func main() {
	// .env fills environment gaps without overriding real variables, so
	// the precedence stays flags > environment > .env > built-in defaults.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	defaults, err := config.DefaultsFromEnv(clock.RealClock{})
	if err != nil {
		fatal(config.DefaultLogLevel, err)
	}

	cmd := newRootCommand(defaults)
	if err := cmd.Execute(); err != nil {
		fatal(defaults.LogLevel, err)
	}
}

func fatal(logLevel string, err error) {
	logger.New(logLevel).Error().Err(err).Msg("Export failed")
	os.Exit(exitCode(err))
}

// exitCode maps each error category to its own exit status so callers can
// tell configuration, authentication, fetch, and output failures apart.
func exitCode(err error) int {
	var (
		cfgErr   *config.Error
		authErr  *auth.Error
		fetchErr *azure.FetchError
		writeErr *export.Error
	)
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &authErr):
		return exitAuth
	case errors.As(err, &fetchErr):
		return exitFetch
	case errors.As(err, &writeErr):
		return exitWrite
	default:
		return exitFailure
	}
}

func newRootCommand(d *config.Defaults) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "azure-billing-export",
		Short: "Export Azure Cost Management billing data to CSV",
		Long: "azure-billing-export queries the Azure Cost Management API for billing\n" +
			"data over a date range and writes a semicolon-delimited CSV with costs\n" +
			"in USD and EUR. All flags can also be configured through environment\n" +
			"variables or a .env file.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(config.Settings{
				AuthType:       opts.authType,
				BearerToken:    opts.bearerToken,
				TenantID:       opts.tenantID,
				ClientID:       opts.clientID,
				ClientSecret:   opts.clientSecret,
				SubscriptionID: opts.subscriptionID,
				ResourceGroup:  opts.resourceGroup,
				Services:       opts.services,
				FromDate:       opts.fromDate,
				ToDate:         opts.toDate,
				OutputPath:     opts.output,
				CostThreshold:  opts.costThreshold,
				MaxDays:        opts.maxDays,
				RequestTimeout: d.RequestTimeout,
				MaxRetries:     d.MaxRetries,
				RetryDelay:     d.RetryDelay,
				LogLevel:       opts.logLevel,
			})
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel)
			log.Info().
				Str("version", version.Version).
				Str("auth_type", cfg.AuthType).
				Msg("Starting Azure billing export")
			log.Info().
				Str("subscription_id", cfg.SubscriptionID).
				Str("resource_group", cfg.ResourceGroup).
				Str("services", strings.Join(cfg.Services, ", ")).
				Float64("cost_threshold", cfg.CostThreshold).
				Str("output", cfg.OutputPath).
				Msg("Configuration loaded")

			return app.Run(cmd.Context(), cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.authType, "auth-type", d.AuthType,
		"Authentication type: bearer_token or client_credentials")
	flags.StringVar(&opts.bearerToken, "bearer-token", d.BearerToken,
		"Bearer token for direct authentication")
	flags.StringVar(&opts.tenantID, "tenant-id", d.TenantID,
		"Azure tenant ID for client credentials auth")
	flags.StringVar(&opts.clientID, "client-id", d.ClientID,
		"Azure client ID for client credentials auth")
	flags.StringVar(&opts.clientSecret, "client-secret", d.ClientSecret,
		"Azure client secret for client credentials auth")
	flags.StringVar(&opts.subscriptionID, "subscription-id", d.SubscriptionID,
		"Azure subscription ID")
	flags.StringVar(&opts.resourceGroup, "resource-group", d.ResourceGroup,
		"Azure resource group name")
	flags.StringSliceVar(&opts.services, "services", d.Services,
		"Service names or resource IDs to filter by")
	flags.StringVar(&opts.fromDate, "from-date", d.FromDate,
		"Start date in format YYYY-MM-DD")
	flags.StringVar(&opts.toDate, "to-date", d.ToDate,
		"End date in format YYYY-MM-DD")
	flags.IntVar(&opts.maxDays, "max-days", d.MaxDays,
		"Maximum number of days per API request")
	flags.Float64Var(&opts.costThreshold, "cost-threshold", d.CostThreshold,
		"Include only resources with USD cost at or above this threshold")
	flags.StringVar(&opts.output, "output", d.ExportPath,
		"Output CSV file path")
	flags.StringVar(&opts.logLevel, "log-level", d.LogLevel,
		"Log level: debug, info, warn, or error")

	return cmd
}
