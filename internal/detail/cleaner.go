package detail

import "github.com/filmatlas/moviemeta/internal/catalog"

// Validate checks record shape: every scalar field populated and both list
// fields present. Content correctness is the parser's job, not re-checked.
func Validate(rec catalog.Record) bool {
	if rec.Title == "" || rec.Year == "" || rec.Rating == "" ||
		rec.Poster == "" || rec.Summary == "" {
		return false
	}
	return len(rec.Genres) > 0 && len(rec.Cast) > 0
}

// Clean re-applies whitespace normalization to every field, trims list
// elements, and drops elements that become empty. Clean is idempotent.
func Clean(rec catalog.Record) catalog.Record {
	return catalog.Record{
		Title:   cleanText(rec.Title),
		Year:    cleanText(rec.Year),
		Rating:  cleanText(rec.Rating),
		Genres:  cleanList(rec.Genres),
		Cast:    cleanList(rec.Cast),
		Poster:  cleanText(rec.Poster),
		Summary: cleanText(rec.Summary),
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = cleanText(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
