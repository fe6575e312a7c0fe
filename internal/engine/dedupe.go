package engine

import "github.com/Veraticus/deedscan/internal/model"

// Dedupe drops records whose (document number, survey number) key was
// already seen. The first occurrence wins and order is preserved.
func Dedupe(records []model.ExtractedRecord) []model.ExtractedRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.ExtractedRecord, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
