package core

// Artifact is a file a task wrote to one of its output locations.
type Artifact struct {
	// Path is the project-relative path the file was written to.
	Path string

	// Size is the number of bytes written.
	Size int
}
