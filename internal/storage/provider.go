// Package storage defines the note file-system abstraction.
package storage

// Provider is the interface for note file operations. All names are
// relative to the notes directory root.
type Provider interface {
	// List returns the file names of every .md file in the notes directory.
	List() ([]string, error)
	// Read returns the raw bytes of the named note file.
	Read(name string) ([]byte, error)
	// Write atomically overwrites the named note file.
	Write(name string, content []byte) error
	// Delete removes the named file. Deleting an absent file is a no-op.
	Delete(name string) error
}
