package exam

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Fallback string   `yaml:"fallback" validate:"required"`
	Exams    []Config `yaml:"exams" validate:"min=1,dive"`
}

// LoadFile reads an alternate catalog from a YAML document of the form
//
//	fallback: upsc
//	exams:
//	  - id: upsc
//	    name: UPSC Civil Services
//	    accepted_formats: [.jpg, .pdf]
func LoadFile(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, errors.New("empty catalog path")
	}
	raw, err := os.ReadFile(path) //nolint:gosec // catalog path is controlled by deployment
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	for _, e := range doc.Exams {
		if len(ParseFormats(strings.Join(e.AcceptedFormats, ","))) == 0 {
			return Catalog{}, fmt.Errorf("%w: exam %q has no usable formats", ErrInvalidCatalog, e.ID)
		}
	}
	return New(doc.Exams, doc.Fallback)
}
