package workspace

// FileReader reads payload files beneath a documentation root.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	Glob(pattern string) ([]string, error)
}
