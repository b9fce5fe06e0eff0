package agents

import "testing"

func TestDecreasingAndIncreasingKPIBounds(t *testing.T) {
	if v := decreasingKPI(0, 0, 10); v != 1 {
		t.Errorf("decreasingKPI at lo = %v, want 1", v)
	}
	if v := decreasingKPI(10, 0, 10); v != 0 {
		t.Errorf("decreasingKPI at hi = %v, want 0", v)
	}
	if v := decreasingKPI(5, 5, 5); v != 1 {
		t.Errorf("decreasingKPI on collapsed range = %v, want 1", v)
	}
	if v := decreasingKPI(11, 0, 10); v != -1 {
		t.Errorf("decreasingKPI out of range = %v, want -1", v)
	}

	if v := increasingKPI(0, 0, 10); v != 0 {
		t.Errorf("increasingKPI at lo = %v, want 0", v)
	}
	if v := increasingKPI(10, 0, 10); v != 1 {
		t.Errorf("increasingKPI at hi = %v, want 1", v)
	}
	if v := increasingKPI(-1, 0, 10); v != -1 {
		t.Errorf("increasingKPI out of range = %v, want -1", v)
	}
}

func TestScoreVariantsPicksCheapestWhenTimesTie(t *testing.T) {
	variants := []Variant{
		{TimeFrom: 0, TimeTo: 10, Price: 100},
		{TimeFrom: 0, TimeTo: 10, Price: 50},
	}
	scoreVariants(variants, DefaultWeights)
	idx := best(variants)
	if idx != 1 {
		t.Fatalf("expected the cheaper variant (index 1) to win, got %d: %+v", idx, variants)
	}
}

func TestBestBreaksTiesByInsertionOrder(t *testing.T) {
	variants := []Variant{
		{TotalEfficiency: 0.5},
		{TotalEfficiency: 0.5},
	}
	if idx := best(variants); idx != 0 {
		t.Fatalf("expected the first variant to win a tie, got index %d", idx)
	}
}
