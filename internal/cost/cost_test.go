package cost

import "testing"

func TestAggregate_SumsDuplicateKeys(t *testing.T) {
	records := []Record{
		{Date: "2024-03-01", ResourceName: "france-gpt4", ResourceID: "/id/a", CostUSD: 100, CostEUR: 92},
		{Date: "2024-03-01", ResourceName: "france-gpt4", ResourceID: "/id/b", CostUSD: 50, CostEUR: 46},
	}

	result := Aggregate(records, 0)

	if len(result) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result))
	}
	if result[0].CostUSD != 150 {
		t.Errorf("CostUSD: got %v, want 150", result[0].CostUSD)
	}
	if result[0].CostEUR != 138 {
		t.Errorf("CostEUR: got %v, want 138", result[0].CostEUR)
	}
	if result[0].ResourceID != "/id/a" {
		t.Errorf("ResourceID should keep the first seen value, got %q", result[0].ResourceID)
	}
}

func TestAggregate_Threshold(t *testing.T) {
	records := []Record{
		{Date: "2024-03-01", ResourceName: "cheap", CostUSD: 5},
		{Date: "2024-03-01", ResourceName: "at-threshold", CostUSD: 10},
		{Date: "2024-03-01", ResourceName: "expensive", CostUSD: 250},
	}

	result := Aggregate(records, 10)

	if len(result) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result))
	}
	for _, r := range result {
		if r.ResourceName == "cheap" {
			t.Error("Record below threshold should have been excluded")
		}
	}
}

// Costs that individually sit below the threshold but sum above it must
// survive: filtering happens after merging.
func TestAggregate_ThresholdAppliesToSum(t *testing.T) {
	records := []Record{
		{Date: "2024-03-01", ResourceName: "split", CostUSD: 6},
		{Date: "2024-03-01", ResourceName: "split", CostUSD: 7},
	}

	result := Aggregate(records, 10)

	if len(result) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result))
	}
	if result[0].CostUSD != 13 {
		t.Errorf("CostUSD: got %v, want 13", result[0].CostUSD)
	}
}

func TestAggregate_SortsByDateThenResource(t *testing.T) {
	records := []Record{
		{Date: "2024-04-01", ResourceName: "beta", CostUSD: 1},
		{Date: "2024-03-01", ResourceName: "zulu", CostUSD: 1},
		{Date: "2024-03-01", ResourceName: "alpha", CostUSD: 1},
		{Date: "2024-04-01", ResourceName: "alpha", CostUSD: 1},
	}

	result := Aggregate(records, 0)

	want := []struct{ date, resource string }{
		{"2024-03-01", "alpha"},
		{"2024-03-01", "zulu"},
		{"2024-04-01", "alpha"},
		{"2024-04-01", "beta"},
	}
	if len(result) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(result))
	}
	for i, w := range want {
		if result[i].Date != w.date || result[i].ResourceName != w.resource {
			t.Errorf("Position %d: got (%s, %s), want (%s, %s)",
				i, result[i].Date, result[i].ResourceName, w.date, w.resource)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	if result := Aggregate(nil, 0); len(result) != 0 {
		t.Errorf("Expected no records, got %d", len(result))
	}
}

func TestTotals(t *testing.T) {
	records := []Record{
		{CostUSD: 1.5, CostEUR: 1.4},
		{CostUSD: 2.5, CostEUR: 2.3},
	}

	if got := TotalUSD(records); got != 4.0 {
		t.Errorf("TotalUSD: got %v, want 4.0", got)
	}
	if got := TotalEUR(records); got != 3.7 {
		t.Errorf("TotalEUR: got %v, want 3.7", got)
	}
}
