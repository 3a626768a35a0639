package calculator

import "StockSentinel/internal/model"

// PremiumWindow is the number of joined trading days used for the fair ratio.
const PremiumWindow = 250

// IndexPremium values price against the price implied by the ticker's average
// close ratio to its benchmark over the last PremiumWindow common trading days.
// ok is false when the series share no usable days.
func IndexPremium(price float64, own, index *model.Series) (premium float64, ok bool) {
	if own.Empty() || index.Empty() {
		return 0, false
	}
	indexClose := make(map[string]float64, index.Len())
	for _, b := range index.Bars {
		indexClose[b.Date()] = b.Close
	}
	var ratios []float64
	for _, b := range own.Bars {
		ic, found := indexClose[b.Date()]
		if !found || ic <= 0 {
			continue
		}
		ratios = append(ratios, b.Close/ic)
	}
	if len(ratios) == 0 {
		return 0, false
	}
	if len(ratios) > PremiumWindow {
		ratios = ratios[len(ratios)-PremiumWindow:]
	}
	avgRatio := TailMean(ratios, len(ratios))
	latest, _ := index.Last()
	theoretical := latest.Close * avgRatio
	if theoretical <= 0 {
		return 0, false
	}
	return (price - theoretical) / theoretical * 100, true
}
