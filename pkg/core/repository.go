package core

import "context"

// Store is the file service holding board documents.
// Paths are slash-separated and relative to the store's root (the vault).
type Store interface {
	// Read returns the document text. A missing document yields an error
	// satisfying errors.Is(err, ErrNotFound).
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the document text. Implementations must not leave a
	// partially written document behind on failure.
	Write(ctx context.Context, path string, data []byte) error
}

// Locker is implemented by stores that can guard a document against
// concurrent writers in other processes.
type Locker interface {
	// Lock blocks until the document lock is held or ctx is done.
	Lock(ctx context.Context, path string) (unlock func(), err error)
}

// Committer is implemented by stores that version documents after a write.
type Committer interface {
	Commit(ctx context.Context, path, message string) error
}

// Lister is implemented by stores that can enumerate documents by pattern.
type Lister interface {
	List(ctx context.Context, pattern string) ([]string, error)
}

// Codec converts board documents to and from their persisted text.
type Codec interface {
	// Parse reads a board. Empty input yields an empty board.
	Parse(data []byte) (*Board, error)
	// Serialize renders a board deterministically.
	Serialize(b *Board) ([]byte, error)
}
