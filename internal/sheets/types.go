package sheets

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/deedscan/internal/model"
)

// UnassignedDistrict groups records without a district.
const UnassignedDistrict = "(no district)"

// DistrictRow is one line of the Summary tab.
type DistrictRow struct {
	District     string
	TotalValue   decimal.Decimal
	Transactions int
	Valued       int
}

// Summary aggregates a set of transactions for the Summary tab.
type Summary struct {
	TotalValue   decimal.Decimal
	ByDistrict   []DistrictRow
	Transactions int
	Valued       int
}

// Summarize totals transaction values overall and per district. Values
// that do not parse as a number count toward Transactions only.
func Summarize(txns []model.Transaction) Summary {
	byName := make(map[string]*DistrictRow)
	s := Summary{Transactions: len(txns)}

	for _, t := range txns {
		name := strings.TrimSpace(t.District)
		if name == "" {
			name = UnassignedDistrict
		}
		row, ok := byName[name]
		if !ok {
			row = &DistrictRow{District: name}
			byName[name] = row
		}
		row.Transactions++

		v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(t.TransactionValue), ",", ""))
		if err != nil {
			continue
		}
		row.TotalValue = row.TotalValue.Add(v)
		row.Valued++
		s.TotalValue = s.TotalValue.Add(v)
		s.Valued++
	}

	s.ByDistrict = make([]DistrictRow, 0, len(byName))
	for _, row := range byName {
		s.ByDistrict = append(s.ByDistrict, *row)
	}
	sort.Slice(s.ByDistrict, func(i, j int) bool {
		a, b := s.ByDistrict[i], s.ByDistrict[j]
		if c := a.TotalValue.Cmp(b.TotalValue); c != 0 {
			return c > 0
		}
		return a.District < b.District
	})

	return s
}
