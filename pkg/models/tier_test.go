package models

import "testing"

func TestTierNext_NeverMovesDownward(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want Tier
	}{
		{"cheap escalates to capable", TierCheap, TierCapable},
		{"capable escalates to premium", TierCapable, TierPremium},
		{"premium stays at premium", TierPremium, TierPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Next(); got != tt.want {
				t.Errorf("Next(%v) = %v, want %v", tt.tier, got, tt.want)
			}
			if tt.tier.Next().Rank() < tt.tier.Rank() {
				t.Errorf("Next(%v) moved down the ladder", tt.tier)
			}
		})
	}
}

func TestTierValid(t *testing.T) {
	for _, tier := range []Tier{TierCheap, TierCapable, TierPremium} {
		if !tier.Valid() {
			t.Errorf("Valid(%v) = false, want true", tier)
		}
	}
	if Tier("ultra").Valid() {
		t.Error("Valid(ultra) = true, want false")
	}
}

func TestTierStrategyStartTier(t *testing.T) {
	tests := []struct {
		strategy TierStrategy
		want     Tier
	}{
		{TierStrategyCheapOnly, TierCheap},
		{TierStrategyCapableFirst, TierCapable},
		{TierStrategyProgressive, TierCheap},
	}

	for _, tt := range tests {
		if got := tt.strategy.StartTier(); got != tt.want {
			t.Errorf("StartTier(%v) = %v, want %v", tt.strategy, got, tt.want)
		}
	}
}

func TestGradeForScore_BoundariesResolveUpward(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Grade
	}{
		{"perfect score", 100, GradeA},
		{"exact A boundary", 90.0, GradeA},
		{"just below A", 89.9999, GradeB},
		{"exact B boundary", 80.0, GradeB},
		{"exact C boundary", 70.0, GradeC},
		{"exact D boundary", 60.0, GradeD},
		{"just below D", 59.9999, GradeF},
		{"zero", 0, GradeF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GradeForScore(tt.score); got != tt.want {
				t.Errorf("GradeForScore(%v) = %v, want %v", tt.score, got, tt.want)
			}
		})
	}
}
