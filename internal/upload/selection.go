package upload

// Selection is the ordered set of files chosen for the next submission.
// Duplicates are allowed. It is not safe for concurrent use; the owning
// workflow controller serializes access.
type Selection struct {
	files []CandidateFile
}

// Add appends validated files, keeping their relative order.
func (s *Selection) Add(files ...CandidateFile) {
	s.files = append(s.files, files...)
}

// RemoveAt drops the file at index without reordering the rest.
func (s *Selection) RemoveAt(index int) error {
	if index < 0 || index >= len(s.files) {
		return newErrIndexOutOfRange(index, len(s.files))
	}
	s.files = append(s.files[:index], s.files[index+1:]...)
	return nil
}

// Clear empties the selection.
func (s *Selection) Clear() { s.files = nil }

// Len reports the number of selected files.
func (s *Selection) Len() int { return len(s.files) }

// Files returns a copy of the selection in order.
func (s *Selection) Files() []CandidateFile {
	out := make([]CandidateFile, len(s.files))
	copy(out, s.files)
	return out
}

// TotalSize sums the byte sizes of all selected files.
func (s *Selection) TotalSize() int64 {
	var total int64
	for _, f := range s.files {
		total += f.Size
	}
	return total
}
