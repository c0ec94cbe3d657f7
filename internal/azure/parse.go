package azure

import (
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/billingops/azure-billing-export/internal/cost"
	"github.com/billingops/azure-billing-export/internal/dates"
)

// parseResult converts one query response page into cost records. Rows
// missing a date or resource ID are skipped.
func (c *Client) parseResult(result *armcostmanagement.QueryResult) []cost.Record {
	if result.Properties == nil || result.Properties.Rows == nil {
		return nil
	}

	columns := buildColumnMap(result.Properties.Columns)

	dateIdx, hasDate := findColumn(columns, "billingmonth", "usagedate", "usagestart")
	resourceIdx, hasResource := findColumn(columns, "resourceid")
	costUSDIdx, hasCostUSD := findColumn(columns, "costusd")
	costEURIdx, hasCostEUR := findColumn(columns, "cost")

	if !hasDate || !hasResource {
		c.logger.Warn().Msg("Response is missing date or resource columns, no rows parsed")
		return nil
	}

	var records []cost.Record
	skipped := 0

	for _, row := range result.Properties.Rows {
		if len(row) <= dateIdx || len(row) <= resourceIdx {
			skipped++
			continue
		}

		date, ok := parseBillingDate(row[dateIdx])
		if !ok {
			skipped++
			continue
		}

		resourceID, ok := row[resourceIdx].(string)
		if !ok || resourceID == "" {
			skipped++
			continue
		}

		record := cost.Record{
			Date:         date,
			ResourceID:   resourceID,
			ResourceName: extractResourceName(resourceID),
		}
		if hasCostUSD && len(row) > costUSDIdx {
			record.CostUSD = parseCost(row[costUSDIdx])
		}
		if hasCostEUR && len(row) > costEURIdx {
			record.CostEUR = parseCost(row[costEURIdx])
		}

		records = append(records, record)
	}

	if skipped > 0 {
		c.logger.Warn().Int("rows", skipped).Msg("Skipped rows with missing or malformed fields")
	}

	return records
}

// buildColumnMap maps lowercased column names to their row indices.
func buildColumnMap(columns []*armcostmanagement.QueryColumn) map[string]int {
	columnMap := make(map[string]int, len(columns))
	for i, col := range columns {
		if col != nil && col.Name != nil {
			columnMap[strings.ToLower(*col.Name)] = i
		}
	}
	return columnMap
}

// findColumn returns the index of the first present candidate name.
func findColumn(columns map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := columns[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// parseBillingDate normalizes the API's various date encodings to
// YYYY-MM-DD. Monthly granularity yields timestamps like
// "2024-03-01T00:00:00"; some responses carry numeric YYYYMMDD or YYYYMM
// values instead.
func parseBillingDate(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		layouts := []string{
			"2006-01-02T15:04:05",
			time.RFC3339,
			dates.Layout,
			"20060102",
			"200601",
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(dates.Layout), true
			}
		}
	case float64:
		digits := strconv.FormatFloat(v, 'f', 0, 64)
		for _, layout := range []string{"20060102", "200601"} {
			if t, err := time.Parse(layout, digits); err == nil {
				return t.Format(dates.Layout), true
			}
		}
	}
	return "", false
}

// parseCost converts a cost cell to float64, tolerating numeric strings.
func parseCost(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// extractResourceName returns the last path segment of an Azure resource ID.
func extractResourceName(resourceID string) string {
	trimmed := strings.Trim(resourceID, "/")
	if trimmed == "" {
		return "unknown-resource"
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}
