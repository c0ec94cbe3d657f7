package cost

import "sort"

// Record is a single billing line item returned by the Cost Management API.
type Record struct {
	Date         string // YYYY-MM-DD
	ResourceName string
	ResourceID   string
	CostUSD      float64
	CostEUR      float64
}

type groupKey struct {
	date     string
	resource string
}

// Aggregate merges records that share the same (date, resource name) by
// summing their costs, drops entries whose USD cost is strictly below
// threshold, and returns the remainder sorted by date then resource name.
func Aggregate(records []Record, threshold float64) []Record {
	merged := make(map[groupKey]Record, len(records))

	for _, r := range records {
		key := groupKey{date: r.Date, resource: r.ResourceName}
		if existing, ok := merged[key]; ok {
			existing.CostUSD += r.CostUSD
			existing.CostEUR += r.CostEUR
			merged[key] = existing
			continue
		}
		merged[key] = r
	}

	result := make([]Record, 0, len(merged))
	for _, r := range merged {
		if r.CostUSD < threshold {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].ResourceName < result[j].ResourceName
	})

	return result
}

// TotalUSD sums the USD cost over all records.
func TotalUSD(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.CostUSD
	}
	return total
}

// TotalEUR sums the EUR cost over all records.
func TotalEUR(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.CostEUR
	}
	return total
}
