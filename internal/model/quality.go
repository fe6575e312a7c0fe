package model

import (
	"fmt"
	"math"
	"strings"
)

// UnknownName is stored when neither a Latin nor a native name was extracted.
const UnknownName = "Unknown"

// Quality grades.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityUnknown   = "unknown"
)

// QualityDetails counts records missing commonly absent fields.
type QualityDetails struct {
	MissingSeller   int `json:"missingSeller"`
	MissingValue    int `json:"missingValue"`
	MissingLocation int `json:"missingLocation"`
}

// DataQuality summarizes how complete a batch of extracted records is.
type DataQuality struct {
	Quality      string         `json:"quality"`
	Warnings     []string       `json:"warnings,omitempty"`
	Details      QualityDetails `json:"details"`
	Completeness int            `json:"completeness"`
	Total        int            `json:"total"`
	Complete     int            `json:"complete"`
	Incomplete   int            `json:"incomplete"`
}

// AssessQuality grades a batch of records.
func AssessQuality(records []ExtractedRecord) DataQuality {
	total := len(records)
	if total == 0 {
		return DataQuality{Quality: QualityUnknown}
	}

	var d QualityDetails
	for _, r := range records {
		if r.SellerName == "" || r.SellerName == UnknownName {
			d.MissingSeller++
		}
		if r.TransactionValue == "" {
			d.MissingValue++
		}
		if r.District == "" || r.Village == "" {
			d.MissingLocation++
		}
	}

	complete := total - max(d.MissingSeller, d.MissingValue, d.MissingLocation)
	q := DataQuality{
		Quality:      QualityExcellent,
		Completeness: int(math.Round(float64(complete) / float64(total) * 100)),
		Total:        total,
		Complete:     complete,
		Incomplete:   total - complete,
		Details:      d,
	}

	share := func(n int) float64 { return float64(n) / float64(total) }
	pct := func(n int) int { return int(math.Round(share(n) * 100)) }

	switch {
	case share(d.MissingSeller) > 0.5:
		q.Quality = QualityPoor
		q.Warnings = append(q.Warnings, fmt.Sprintf("%d%% missing seller names", pct(d.MissingSeller)))
	case share(d.MissingSeller) > 0.2:
		q.Quality = QualityFair
		q.Warnings = append(q.Warnings, fmt.Sprintf("%d%% missing seller names", pct(d.MissingSeller)))
	}

	if share(d.MissingValue) > 0.1 {
		if q.Quality == QualityExcellent {
			q.Quality = QualityGood
		}
		q.Warnings = append(q.Warnings, fmt.Sprintf("%d%% missing transaction values", pct(d.MissingValue)))
	}

	if share(d.MissingLocation) > 0.1 {
		if q.Quality == QualityExcellent {
			q.Quality = QualityGood
		}
		q.Warnings = append(q.Warnings, fmt.Sprintf("%d%% missing location data", pct(d.MissingLocation)))
	}

	return q
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
