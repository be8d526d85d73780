package exam

var builtin = []Config{
	{
		ID:              "upsc",
		Name:            "UPSC Civil Services",
		Description:     "Compress files for UPSC application portals with strict size limits.",
		MaxImageSize:    "200KB",
		MaxDocSize:      "1MB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf", ".doc", ".docx"},
	},
	{
		ID:              "gate",
		Name:            "GATE",
		Description:     "Optimize documents and images for GATE application uploads.",
		MaxImageSize:    "100KB",
		MaxDocSize:      "500KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "cat",
		Name:            "CAT MBA Entrance",
		Description:     "Format your CAT application documents to required specifications.",
		MaxImageSize:    "150KB",
		MaxDocSize:      "800KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "neet",
		Name:            "NEET Medical",
		Description:     "Prepare medical entrance exam documents with proper compression.",
		MaxImageSize:    "200KB",
		MaxDocSize:      "1MB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "jee",
		Name:            "JEE Engineering",
		Description:     "Compress files for JEE Main and Advanced applications.",
		MaxImageSize:    "100KB",
		MaxDocSize:      "500KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "bank",
		Name:            "Bank Exams",
		Description:     "Optimize documents for banking exam applications.",
		MaxImageSize:    "50KB",
		MaxDocSize:      "500KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "ssc",
		Name:            "SSC Exams",
		Description:     "Format files according to Staff Selection Commission requirements.",
		MaxImageSize:    "100KB",
		MaxDocSize:      "500KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	{
		ID:              "defence",
		Name:            "Defence Exams",
		Description:     "Compress documents for various defence services examination applications.",
		MaxImageSize:    "150KB",
		MaxDocSize:      "700KB",
		AcceptedFormats: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
}

// Default returns the built-in catalog of supported exams.
func Default() Catalog {
	entries := make([]Config, len(builtin))
	for i, e := range builtin {
		e.AcceptedFormats = append([]string(nil), e.AcceptedFormats...)
		entries[i] = e
	}
	cat, err := New(entries, FallbackID)
	if err != nil {
		// built-in table is static
		panic(err)
	}
	return cat
}
