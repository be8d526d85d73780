package compress

import (
	"math"
	"strings"
)

// Outcome is the service-reported result for one submitted file.
type Outcome struct {
	ID             string `json:"id"`
	OriginalName   string `json:"original_name"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	FileType       string `json:"file_type"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// ResultSet keeps outcomes in the order the service returned them. It is
// not positionally correlated with the submitted batch.
type ResultSet []Outcome

// SavedPercent is the rounded share of the original size that compression
// removed. It is negative when the service returned a larger file and zero
// when the original size is unknown.
func (o Outcome) SavedPercent() int {
	if o.OriginalSize <= 0 {
		return 0
	}
	ratio := 1 - float64(o.CompressedSize)/float64(o.OriginalSize)
	// half-up rounding, so -2.5 becomes -2
	return int(math.Floor(ratio*100 + 0.5))
}

// Kind buckets FileType for iconography: image, pdf, word or file.
func (o Outcome) Kind() string { return KindOf(o.FileType) }

// KindOf buckets a MIME type string the same way Outcome.Kind does.
func KindOf(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "image"):
		return "image"
	case strings.Contains(mimeType, "pdf"):
		return "pdf"
	case strings.Contains(mimeType, "word"):
		return "word"
	default:
		return "file"
	}
}

// TotalSaved returns the summed original and compressed sizes.
func (r ResultSet) TotalSaved() (original, compressed int64) {
	for _, o := range r {
		original += o.OriginalSize
		compressed += o.CompressedSize
	}
	return original, compressed
}
