package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSummarize_AggregateExample(t *testing.T) {
	// avgEff=85, avgDelivery=95, completion=80%, onTime=60%,
	// weights {.2,.3,.3,.2} -> 17 + 28.5 + 24 + 12 = 81.5.
	w := Weights{FairEfficiency: 0.2, Delivery: 0.3, CompletionRate: 0.3, OnTime: 0.2}

	items := []ItemMetrics{
		{ItemID: 1, Eligible: true, FairEfficiencyPct: 80, IsCompleted: true, DeliveryScore: 100, DeliveryTierName: "on_time", DaysAheadBehind: intPtr(0)},
		{ItemID: 2, Eligible: true, FairEfficiencyPct: 90, IsCompleted: true, DeliveryScore: 110, DeliveryTierName: "slightly_early", DaysAheadBehind: intPtr(-1)},
		{ItemID: 3, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 90, DeliveryTierName: "late_4_7", DaysAheadBehind: intPtr(5)},
		{ItemID: 4, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 80, DeliveryTierName: "late_15_plus", DaysAheadBehind: intPtr(20)},
		{ItemID: 5},
	}

	s, err := Summarize("ada", items, 5, w, 3)
	require.NoError(t, err)

	assert.InDelta(t, 85.0, s.AvgFairEfficiency, 1e-9)
	assert.InDelta(t, 95.0, s.AvgDeliveryScore, 1e-9)
	assert.InDelta(t, 80.0, s.CompletionRate, 1e-9)
	assert.InDelta(t, 50.0, s.OnTimeRate, 1e-9) // 2 of 4 timed items
	assert.False(t, s.LowConfidence)
	assert.Equal(t, map[string]int{"on_time": 1, "slightly_early": 1, "late_4_7": 1, "late_15_plus": 1}, s.TimingBreakdown)
}

func TestSummarize_OverallScoreFormula(t *testing.T) {
	w := Weights{FairEfficiency: 0.2, Delivery: 0.3, CompletionRate: 0.3, OnTime: 0.2}

	// Construct items hitting avgEff=85, avgDelivery=95, completion=80, onTime=60 exactly:
	// 5 timed items, 3 on time.
	items := []ItemMetrics{
		{ItemID: 1, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 95, DaysAheadBehind: intPtr(0), DeliveryTierName: "on_time"},
		{ItemID: 2, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 95, DaysAheadBehind: intPtr(-2), DeliveryTierName: "slightly_early"},
		{ItemID: 3, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 95, DaysAheadBehind: intPtr(-1), DeliveryTierName: "slightly_early"},
		{ItemID: 4, Eligible: true, FairEfficiencyPct: 85, IsCompleted: true, DeliveryScore: 95, DaysAheadBehind: intPtr(2), DeliveryTierName: "late_1_3"},
		{ItemID: 5, Eligible: true, FairEfficiencyPct: 85, IsCompleted: false, DeliveryScore: 95, DaysAheadBehind: intPtr(4), DeliveryTierName: "late_4_7"},
	}
	// completion: 4 of 5 = 80%; onTime: 3 of 5 = 60%.

	s, err := Summarize("ada", items, 5, w, 3)
	require.NoError(t, err)
	assert.InDelta(t, 81.5, s.OverallScore, 1e-9)
}

func TestSummarize_OnTimeRateEntersOverallUnclamped(t *testing.T) {
	// OnTimeRate is a count ratio and tops out at exactly 100; the overall
	// score takes it as-is, weighted like every other component.
	w := Weights{FairEfficiency: 0, Delivery: 0, CompletionRate: 0, OnTime: 1.0}

	items := []ItemMetrics{
		{ItemID: 1, IsCompleted: true, DeliveryScore: 100, DaysAheadBehind: intPtr(0), DeliveryTierName: "on_time"},
		{ItemID: 2, IsCompleted: true, DeliveryScore: 130, DaysAheadBehind: intPtr(-6), DeliveryTierName: "very_early"},
	}

	s, err := Summarize("ada", items, 2, w, 1)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, s.OnTimeRate, 1e-9)
	assert.InDelta(t, 100.0, s.OverallScore, 1e-9)
}

func TestSummarize_RejectsBadWeights(t *testing.T) {
	w := Weights{FairEfficiency: 0.5, Delivery: 0.5, CompletionRate: 0.5, OnTime: 0.5}

	_, err := Summarize("ada", nil, 0, w, 3)
	require.ErrorIs(t, err, ErrInvalidWeights)
}

func TestSummarize_IneligibleItemsNeverCountAsZero(t *testing.T) {
	w := DefaultWeights()

	items := []ItemMetrics{
		{ItemID: 1, Eligible: true, FairEfficiencyPct: 120},
		{ItemID: 2}, // ineligible: must not drag the mean down
		{ItemID: 3}, // ineligible
	}

	s, err := Summarize("ada", items, 3, w, 1)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, s.AvgFairEfficiency, 1e-9)
	assert.Equal(t, 1, s.EligibleItems)
}

func TestSummarize_LowConfidenceFlag(t *testing.T) {
	w := DefaultWeights()
	items := []ItemMetrics{{ItemID: 1, Eligible: true, FairEfficiencyPct: 100, IsCompleted: true}}

	s, err := Summarize("ada", items, 1, w, 3)
	require.NoError(t, err)
	assert.True(t, s.LowConfidence)
	// Still scored, never suppressed.
	assert.Greater(t, s.OverallScore, 0.0)
}

func TestSummarize_TotalAssignedDenominator(t *testing.T) {
	w := DefaultWeights()
	items := []ItemMetrics{
		{ItemID: 1, IsCompleted: true},
		{ItemID: 2, IsCompleted: true},
	}

	// 10 assigned overall, only 2 resolved inside the window.
	s, err := Summarize("ada", items, 10, w, 3)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, s.CompletionRate, 1e-9)
	assert.Equal(t, 10, s.TotalItems)
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize("ada", nil, 0, DefaultWeights(), 3)
	require.NoError(t, err)
	assert.Zero(t, s.OverallScore)
	assert.Zero(t, s.CompletionRate)
	assert.True(t, s.LowConfidence)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.ErrorIs(t, Weights{FairEfficiency: 1, Delivery: 0.1}.Validate(), ErrInvalidWeights)
}
