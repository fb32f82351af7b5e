package ingest

// Record is a phrase after normalization. Index is its position in the
// cleaned input and is the tie-breaker for everything downstream.
type Record struct {
	Index      int
	Raw        string
	Volume     float64
	Normalized string
}

// Prepare normalizes every row into a Record, preserving input order.
func Prepare(rows []Row) []Record {
	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i] = Record{
			Index:      i,
			Raw:        r.Phrase,
			Volume:     r.Volume,
			Normalized: Normalize(r.Phrase),
		}
	}
	return records
}

// TotalVolume sums the volume of all records.
func TotalVolume(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Volume
	}
	return total
}
