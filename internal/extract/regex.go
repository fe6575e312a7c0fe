package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/translit"
)

var (
	documentRe = regexp.MustCompile(`(?i)(?:Document|ஆவணம்|Doc)[\s:]*([0-9]+)`)
	surveyRe   = regexp.MustCompile(`(?i)(?:Survey|சர்வே|S\.No)[\s:]*([0-9/\-]+)`)
	buyerRe    = regexp.MustCompile(`(?i)(?:Buyer|வாங்குபவர்|Purchaser)`)
	sellerRe   = regexp.MustCompile(`(?i)(?:Seller|விற்பவர்|Vendor)`)
	houseRe    = regexp.MustCompile(`(?i)(?:House|வீடு|H\.No)[\s:]*([0-9A-Za-z\-/]+)`)
	dateRe     = regexp.MustCompile(`(?i)(?:Date|தேதி)[\s:]*([0-9]{1,2}[/\-][0-9]{1,2}[/\-][0-9]{2,4})`)
	valueRe    = regexp.MustCompile(`(?i)(?:Value|மதிப்பு|Amount|Rs|₹)[\s:]*([0-9,]+(?:\.[0-9]{2})?)`)
	districtRe = regexp.MustCompile(`(?i)(?:District|மாவட்டம்)[\s:]*(.+)`)
	villageRe  = regexp.MustCompile(`(?i)(?:Village|கிராமம்)[\s:]*(.+)`)
)

// RegexExtractor recognizes labelled lines ("Document: 101", "Survey: 12/3",
// a "Buyer" line followed by the name) without a model. A new document
// number starts a new record.
type RegexExtractor struct {
	logger *slog.Logger
}

// NewRegexExtractor creates a heuristic extractor.
func NewRegexExtractor(logger *slog.Logger) *RegexExtractor {
	return &RegexExtractor{logger: common.LoggerOrDefault(logger)}
}

// Extract scans text line by line.
func (e *RegexExtractor) Extract(ctx context.Context, text string) ([]model.ExtractedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	var (
		records []model.ExtractedRecord
		cur     model.ExtractedRecord
	)
	flush := func() {
		if cur.Valid() {
			cur.TransactionValue = NormalizeValue(cur.TransactionValue)
			records = append(records, cur)
		}
		cur = model.ExtractedRecord{}
	}

	for i, line := range lines {
		if m := documentRe.FindStringSubmatch(line); m != nil {
			if cur.DocumentNumber != "" {
				flush()
			}
			cur.DocumentNumber = m[1]
		}
		if m := surveyRe.FindStringSubmatch(line); m != nil {
			cur.SurveyNumber = m[1]
		}
		if buyerRe.MatchString(line) && i+1 < len(lines) {
			setName(&cur.BuyerName, &cur.BuyerNameNative, lines[i+1])
		}
		if sellerRe.MatchString(line) && i+1 < len(lines) {
			setName(&cur.SellerName, &cur.SellerNameNative, lines[i+1])
		}
		if m := houseRe.FindStringSubmatch(line); m != nil {
			cur.HouseNumber = m[1]
		}
		if m := dateRe.FindStringSubmatch(line); m != nil {
			cur.TransactionDate = m[1]
		}
		if m := valueRe.FindStringSubmatch(line); m != nil {
			cur.TransactionValue = strings.ReplaceAll(m[1], ",", "")
		}
		if m := districtRe.FindStringSubmatch(line); m != nil {
			cur.District = strings.TrimSpace(m[1])
		}
		if m := villageRe.FindStringSubmatch(line); m != nil {
			cur.Village = strings.TrimSpace(m[1])
		}
	}
	flush()

	e.logger.Debug("Regex extraction finished", "lines", len(lines), "records", len(records))
	return records, nil
}

func setName(latin, native *string, name string) {
	if translit.IsTamil(name) {
		*native = name
		return
	}
	*latin = name
}
