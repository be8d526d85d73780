package upload

import (
	"strings"

	"examcompress/internal/exam"
)

// ExtensionOf derives the comparison extension of a file name: everything
// after the last ".", lower-cased and dot-prefixed.
//
//	"A.PDF"       -> ".pdf"
//	"x.tar.gz"    -> ".gz"
//	"README"      -> ".readme" (never matches a real format)
//	"archive."    -> "."
func ExtensionOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return "." + strings.ToLower(name)
}

// Partition splits candidates into those whose extension is accepted by cfg
// and those that are not. Both results keep the input order.
func Partition(candidates []CandidateFile, cfg exam.Config) (accepted, rejected []CandidateFile) {
	allowed := make(map[string]struct{}, len(cfg.AcceptedFormats))
	for _, f := range cfg.AcceptedFormats {
		allowed[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := allowed[ExtensionOf(c.Name)]; ok {
			accepted = append(accepted, c)
			continue
		}
		rejected = append(rejected, c)
	}
	return accepted, rejected
}
