package ems

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_ZeroConnectedNoDivisionError(t *testing.T) {
	s := Compute(Counts{Attempted: 10, Invalid: 2})

	if !almostEqual(s.MobileValidityPct, 0.8) {
		t.Fatalf("mobileValidityPct = %v, want 0.8", s.MobileValidityPct)
	}
	for name, got := range map[string]float64{
		"hygienePct":           s.HygienePct,
		"meetingValidityPct":   s.MeetingValidityPct,
		"meetingConversionPct": s.MeetingConversionPct,
		"purchaseIntentionPct": s.PurchaseIntentionPct,
	} {
		if got != 0 {
			t.Fatalf("%s = %v, want 0 with zero connected", name, got)
		}
	}
}

func TestCompute_AllZeroCounts(t *testing.T) {
	s := Compute(Counts{})
	if s.EMSScore != 0 {
		t.Fatalf("emsScore = %v, want 0 for empty group", s.EMSScore)
	}
}

func TestCompute_KnownValues(t *testing.T) {
	c := Counts{
		Attempted:     100,
		Invalid:       10,
		Connected:     80,
		IdentityWrong: 4,
		NotAFarmer:    6,
		YesAttended:   40,
		Purchased:     20,
		WillingYes:    30,
		QualitySum:    300, // 75 ratings averaging 4
		QualityCount:  75,
	}
	s := Compute(c)

	if !almostEqual(s.MobileValidityPct, 0.9) {
		t.Fatalf("mobileValidityPct = %v, want 0.9", s.MobileValidityPct)
	}
	if !almostEqual(s.HygienePct, 70.0/80.0) {
		t.Fatalf("hygienePct = %v, want 0.875", s.HygienePct)
	}
	if !almostEqual(s.MeetingValidityPct, 0.5) {
		t.Fatalf("meetingValidityPct = %v, want 0.5", s.MeetingValidityPct)
	}
	if !almostEqual(s.MeetingConversionPct, 0.25) {
		t.Fatalf("meetingConversionPct = %v, want 0.25", s.MeetingConversionPct)
	}
	if !almostEqual(s.PurchaseIntentionPct, 50.0/80.0) {
		t.Fatalf("purchaseIntentionPct = %v, want 0.625", s.PurchaseIntentionPct)
	}
	if !almostEqual(s.CropSolutionsFocusPct, 0.8) {
		t.Fatalf("cropSolutionsFocusPct = %v, want 0.8 (avg 4 of 5)", s.CropSolutionsFocusPct)
	}

	wantEMS := 0.25*0.25 + 0.25*0.625 + 0.50*0.8
	if !almostEqual(s.EMSScore, wantEMS) {
		t.Fatalf("emsScore = %v, want %v", s.EMSScore, wantEMS)
	}
}

func TestTotal_IsNotAverageOfGroupPercentages(t *testing.T) {
	// Small group with a perfect conversion rate, large group with a poor one.
	small := Counts{Connected: 2, Purchased: 2}
	large := Counts{Connected: 98, Purchased: 0}

	total := Total([]Counts{small, large})

	want := 2.0 / 100.0
	if !almostEqual(total.MeetingConversionPct, want) {
		t.Fatalf("total meetingConversionPct = %v, want %v (sums over sums)", total.MeetingConversionPct, want)
	}

	average := (Compute(small).MeetingConversionPct + Compute(large).MeetingConversionPct) / 2
	if almostEqual(total.MeetingConversionPct, average) {
		t.Fatalf("total equals the average of per-group percentages (%v); it must not", average)
	}
}

func TestTotal_EmptyGroupList(t *testing.T) {
	s := Total(nil)
	if s.EMSScore != 0 {
		t.Fatalf("emsScore = %v, want 0 for no groups", s.EMSScore)
	}
}
