package core

// Input represents a resolved source file.
//
// Path is the project-relative, slash-separated path. Content is read once
// per task invocation.
type Input struct {
	Path    string
	Content []byte
}

// InputSet is the ordered result of resolving a Source File Set.
type InputSet struct {
	Inputs []Input
}

// Paths returns the input paths in order.
func (s *InputSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Inputs))
	for _, in := range s.Inputs {
		out = append(out, in.Path)
	}
	return out
}
