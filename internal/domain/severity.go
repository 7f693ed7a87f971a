package domain

// SeverityBin is a categorical label over a pollutant value.
type SeverityBin string

const (
	SeverityGood          SeverityBin = "Baik"
	SeverityModerate      SeverityBin = "Sedang"
	SeverityUnhealthy     SeverityBin = "Tidak Sehat"
	SeverityVeryUnhealthy SeverityBin = "Sangat Tidak Sehat"
	SeverityHazardous     SeverityBin = "Berbahaya"
)

// SeverityThreshold is one fixed bin covering [Lower, Upper).
type SeverityThreshold struct {
	Bin   SeverityBin `json:"bin"`
	Lower float64     `json:"lower"`
	Upper float64     `json:"upper"`
}

// SeverityThresholds lists the bins in ascending order. The edges are constants.
var SeverityThresholds = []SeverityThreshold{
	{Bin: SeverityGood, Lower: 0, Upper: 50},
	{Bin: SeverityModerate, Lower: 50, Upper: 100},
	{Bin: SeverityUnhealthy, Lower: 100, Upper: 150},
	{Bin: SeverityVeryUnhealthy, Lower: 150, Upper: 200},
	{Bin: SeverityHazardous, Lower: 200, Upper: 300},
}

// ClassifySeverity maps a value to its bin. Returns false for values outside
// [0,300), including NaN.
func ClassifySeverity(v float64) (SeverityBin, bool) {
	for _, t := range SeverityThresholds {
		if v >= t.Lower && v < t.Upper {
			return t.Bin, true
		}
	}
	return "", false
}

// SeverityCount is the number of records in one bin.
type SeverityCount struct {
	SeverityThreshold
	Count int `json:"count"`
}

// SeverityDistribution counts records per bin. Every bin is present, including
// empty ones. Missing and out-of-range readings are counted as Unclassified.
type SeverityDistribution struct {
	Bins         []SeverityCount `json:"bins"`
	Unclassified int             `json:"unclassified"`
}

// LabelSeverity assigns a bin to every record of view in order. Unclassified
// records get the empty label.
func LabelSeverity(view Dataset, p Pollutant) []SeverityBin {
	labels := make([]SeverityBin, len(view.Records))
	for i := range view.Records {
		v, ok := view.Records[i].Pollutant(p)
		if !ok {
			continue
		}
		labels[i], _ = ClassifySeverity(v)
	}
	return labels
}

// DistributeSeverity labels the view and counts records per bin.
func DistributeSeverity(view Dataset, p Pollutant) SeverityDistribution {
	counts := make(map[SeverityBin]int, len(SeverityThresholds))
	unclassified := 0
	for _, label := range LabelSeverity(view, p) {
		if label == "" {
			unclassified++
			continue
		}
		counts[label]++
	}

	bins := make([]SeverityCount, len(SeverityThresholds))
	for i, t := range SeverityThresholds {
		bins[i] = SeverityCount{SeverityThreshold: t, Count: counts[t.Bin]}
	}
	return SeverityDistribution{Bins: bins, Unclassified: unclassified}
}
