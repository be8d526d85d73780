package exam

import (
	"strings"
)

// FallbackID is the exam whose config is returned for unknown identifiers.
const FallbackID = "upsc"

// Config describes one exam category. Values are treated as immutable.
type Config struct {
	ID              string   `json:"id" yaml:"id" validate:"required"`
	Name            string   `json:"name" yaml:"name" validate:"required"`
	Description     string   `json:"description" yaml:"description"`
	MaxImageSize    string   `json:"max_image_size" yaml:"max_image_size"`
	MaxDocSize      string   `json:"max_doc_size" yaml:"max_doc_size"`
	AcceptedFormats []string `json:"accepted_formats" yaml:"accepted_formats" validate:"min=1,dive,required"`
}

// FormatsLabel renders the accepted formats the way the upload page shows them.
func (c Config) FormatsLabel() string {
	return strings.Join(c.AcceptedFormats, ", ")
}

func (c Config) clone() Config {
	c.AcceptedFormats = append([]string(nil), c.AcceptedFormats...)
	return c
}

// Catalog maps exam identifiers to configs. The zero value is not usable;
// build one with New or Default.
type Catalog struct {
	order    []string
	configs  map[string]Config
	fallback string
}

// New builds a catalog from entries in display order. fallback must be one
// of the entry IDs.
func New(entries []Config, fallback string) (Catalog, error) {
	cat := Catalog{
		order:    make([]string, 0, len(entries)),
		configs:  make(map[string]Config, len(entries)),
		fallback: fallback,
	}
	for _, e := range entries {
		if _, dup := cat.configs[e.ID]; dup {
			return Catalog{}, newErrDuplicateID(e.ID)
		}
		e.AcceptedFormats = ParseFormats(strings.Join(e.AcceptedFormats, ","))
		cat.configs[e.ID] = e
		cat.order = append(cat.order, e.ID)
	}
	if _, ok := cat.configs[fallback]; !ok {
		return Catalog{}, newErrUnknownFallback(fallback)
	}
	return cat, nil
}

// Lookup never fails: unknown identifiers, including the empty string,
// resolve to the fallback config.
func (c Catalog) Lookup(id string) Config {
	if cfg, ok := c.configs[id]; ok {
		return cfg.clone()
	}
	return c.configs[c.fallback].clone()
}

// Known reports whether id belongs to the catalog's closed key set.
func (c Catalog) Known(id string) bool {
	_, ok := c.configs[id]
	return ok
}

// IDs returns the exam identifiers in display order.
func (c Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns every config in display order.
func (c Catalog) All() []Config {
	out := make([]Config, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.configs[id].clone())
	}
	return out
}

// Fallback returns the fallback exam identifier.
func (c Catalog) Fallback() string { return c.fallback }

// ParseFormats splits a comma separated list such as ".jpg, .JPEG,pdf" into
// lowercase, dot-prefixed extensions, dropping blanks and duplicates.
func ParseFormats(list string) []string {
	parts := strings.Split(list, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		ext := strings.ToLower(strings.TrimSpace(p))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
