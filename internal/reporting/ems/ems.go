// Package ems computes the composite call-quality score from aggregated
// call-outcome counts. All math is pure; the reporting repository supplies
// the counts.
package ems

// Composite weights.
const (
	weightMeetingConversion = 0.25
	weightPurchaseIntention = 0.25
	weightCropSolutions     = 0.50
)

// Counts is one group's aggregated call outcomes. Summing two Counts gives
// the Counts of the merged group, which is what makes totals correct.
type Counts struct {
	Attempted     int
	Invalid       int
	Connected     int
	IdentityWrong int
	NotAFarmer    int
	YesAttended   int
	Purchased     int
	WillingYes    int
	QualitySum    int
	QualityCount  int
}

// Add merges another group's counts into c.
func (c Counts) Add(other Counts) Counts {
	return Counts{
		Attempted:     c.Attempted + other.Attempted,
		Invalid:       c.Invalid + other.Invalid,
		Connected:     c.Connected + other.Connected,
		IdentityWrong: c.IdentityWrong + other.IdentityWrong,
		NotAFarmer:    c.NotAFarmer + other.NotAFarmer,
		YesAttended:   c.YesAttended + other.YesAttended,
		Purchased:     c.Purchased + other.Purchased,
		WillingYes:    c.WillingYes + other.WillingYes,
		QualitySum:    c.QualitySum + other.QualitySum,
		QualityCount:  c.QualityCount + other.QualityCount,
	}
}

// Score is the full metric row for one group.
type Score struct {
	MobileValidityPct     float64 `json:"mobileValidityPct"`
	HygienePct            float64 `json:"hygienePct"`
	MeetingValidityPct    float64 `json:"meetingValidityPct"`
	MeetingConversionPct  float64 `json:"meetingConversionPct"`
	PurchaseIntentionPct  float64 `json:"purchaseIntentionPct"`
	CropSolutionsFocusPct float64 `json:"cropSolutionsFocusPct"`
	EMSScore              float64 `json:"emsScore"`
}

// Compute derives the metric row for one group. Zero denominators yield 0.
func Compute(c Counts) Score {
	s := Score{
		MobileValidityPct:     ratio(c.Attempted-c.Invalid, c.Attempted),
		HygienePct:            ratio(c.Connected-c.IdentityWrong-c.NotAFarmer, c.Connected),
		MeetingValidityPct:    ratio(c.YesAttended, c.Connected),
		MeetingConversionPct:  ratio(c.Purchased, c.Connected),
		PurchaseIntentionPct:  ratio(c.WillingYes+c.Purchased, c.Connected),
		CropSolutionsFocusPct: ratio(c.QualitySum, c.QualityCount*5),
	}
	s.EMSScore = weightMeetingConversion*s.MeetingConversionPct +
		weightPurchaseIntention*s.PurchaseIntentionPct +
		weightCropSolutions*s.CropSolutionsFocusPct
	return s
}

// Total merges the groups and scores the merged counts. Percentages are
// computed from summed numerators over summed denominators, never by
// averaging the per-group percentages.
func Total(groups []Counts) Score {
	var total Counts
	for _, g := range groups {
		total = total.Add(g)
	}
	return Compute(total)
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
