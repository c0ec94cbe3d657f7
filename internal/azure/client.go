package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/billingops/azure-billing-export/internal/auth"
	"github.com/billingops/azure-billing-export/internal/config"
	"github.com/billingops/azure-billing-export/internal/cost"
	"github.com/billingops/azure-billing-export/internal/dates"
	"github.com/billingops/azure-billing-export/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultBaseURL = "https://management.azure.com"
	apiVersion     = "2021-10-01"

	// pageSize caps rows per response page; further rows arrive via the
	// nextLink continuation.
	pageSize = "5000"
)

// FetchError reports a cost query that failed after exhausting retries or
// hitting an unrecoverable API error.
type FetchError struct {
	Segment dates.Segment
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cost query for %s failed: %v", e.Segment, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client issues Cost Management queries for one subscription and resource
// group.
type Client struct {
	cfg     *config.Config
	tokens  auth.TokenProvider
	http    *http.Client
	logger  *logger.Logger
	baseURL string
}

// NewClient creates a Cost Management API client using the given token
// provider.
func NewClient(cfg *config.Config, tokens auth.TokenProvider, log *logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		tokens:  tokens,
		http:    &http.Client{},
		logger:  log,
		baseURL: defaultBaseURL,
	}
}

// FetchSegment queries cost data for one date segment, following nextLink
// continuations until the result set is exhausted.
func (c *Client) FetchSegment(ctx context.Context, seg dates.Segment) ([]cost.Record, error) {
	body, err := json.Marshal(c.queryDefinition(seg))
	if err != nil {
		return nil, &FetchError{Segment: seg, Err: fmt.Errorf("failed to encode query: %w", err)}
	}

	var records []cost.Record
	reqURL := c.queryURL()

	for page := 1; ; page++ {
		c.logger.Debug().
			Str("segment", seg.String()).
			Int("page", page).
			Msg("Requesting cost data")

		result, err := c.postQuery(ctx, reqURL, body)
		if err != nil {
			return nil, &FetchError{Segment: seg, Err: err}
		}

		pageRecords := c.parseResult(result)
		records = append(records, pageRecords...)

		if result.Properties == nil || result.Properties.NextLink == nil || *result.Properties.NextLink == "" {
			break
		}
		reqURL = *result.Properties.NextLink
	}

	c.logger.Info().
		Str("segment", seg.String()).
		Int("records", len(records)).
		Msg("Retrieved cost data")

	return records, nil
}

// queryURL builds the resource-group scoped query endpoint.
func (c *Client) queryURL() string {
	params := url.Values{}
	params.Set("api-version", apiVersion)
	params.Set("$top", pageSize)
	return fmt.Sprintf("%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.CostManagement/query?%s",
		c.baseURL, c.cfg.SubscriptionID, c.cfg.ResourceGroup, params.Encode())
}

// queryDefinition builds the request body: monthly ActualCost totals in the
// billing currency and USD, grouped by resource, filtered to the configured
// services.
func (c *Client) queryDefinition(seg dates.Segment) armcostmanagement.QueryDefinition {
	granularity := armcostmanagement.GranularityType("Monthly")

	serviceIDs := make([]*string, len(c.cfg.Services))
	for i, svc := range c.cfg.Services {
		serviceIDs[i] = to.Ptr(svc)
	}

	return armcostmanagement.QueryDefinition{
		Type:      to.Ptr(armcostmanagement.ExportTypeActualCost),
		Timeframe: to.Ptr(armcostmanagement.TimeframeTypeCustom),
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: to.Ptr(seg.From),
			To:   to.Ptr(seg.To),
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     to.Ptr("Cost"),
					Function: to.Ptr(armcostmanagement.FunctionTypeSum),
				},
				"totalCostUSD": {
					Name:     to.Ptr("CostUSD"),
					Function: to.Ptr(armcostmanagement.FunctionTypeSum),
				},
			},
			Grouping: []*armcostmanagement.QueryGrouping{
				{Type: to.Ptr(armcostmanagement.QueryColumnTypeDimension), Name: to.Ptr("ResourceId")},
				{Type: to.Ptr(armcostmanagement.QueryColumnTypeDimension), Name: to.Ptr("ChargeType")},
				{Type: to.Ptr(armcostmanagement.QueryColumnTypeDimension), Name: to.Ptr("PublisherType")},
			},
			Filter: &armcostmanagement.QueryFilter{
				Dimensions: &armcostmanagement.QueryComparisonExpression{
					Name:     to.Ptr("ResourceId"),
					Operator: to.Ptr(armcostmanagement.QueryOperatorTypeIn),
					Values:   serviceIDs,
				},
			},
		},
	}
}

// postQuery sends one query request with the configured bounded retry
// policy: transient failures are retried with a fixed delay; definite
// rejections stop immediately.
func (c *Client) postQuery(ctx context.Context, reqURL string, body []byte) (*armcostmanagement.QueryResult, error) {
	var result *armcostmanagement.QueryResult
	refreshed := false

	operation := func() error {
		res, err := c.doQuery(ctx, reqURL, body, &refreshed)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryDelay), uint64(c.cfg.MaxRetries-1)),
		ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Dur("retry_in", wait).
			Msg("Cost query attempt failed")
	}

	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxRetries, err)
	}
	return result, nil
}

// doQuery performs a single HTTP attempt. Errors returned plainly are
// retryable; backoff.Permanent marks definite failures.
func (c *Client) doQuery(ctx context.Context, reqURL string, body []byte, refreshed *bool) (*armcostmanagement.QueryResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decoding.
	case resp.StatusCode == http.StatusUnauthorized:
		if !*refreshed {
			*refreshed = true
			if _, rerr := c.tokens.Refresh(ctx); rerr != nil {
				return nil, backoff.Permanent(rerr)
			}
			c.logger.Warn().Msg("Token rejected (401), refreshed and retrying once")
			return nil, fmt.Errorf("unauthorized (401), token refreshed")
		}
		return nil, backoff.Permanent(fmt.Errorf("unauthorized (401): token rejected after refresh"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("throttled (429)")
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(respBody))
	default:
		return nil, backoff.Permanent(fmt.Errorf("request rejected (%d): %s", resp.StatusCode, truncate(respBody)))
	}

	var result armcostmanagement.QueryResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed response: %w", err))
	}
	return &result, nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
