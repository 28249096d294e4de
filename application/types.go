package application

// Application the script source provider. The runtime treats it as an opaque
// byte-stream source; how the bytes are stored is the host's business.
type Application interface {
	Read(name string) ([]byte, error)
	Exists(name string) (bool, error)
	Glob(pattern string) (matches []string, err error)
	Root() string
}
