package types

import "time"

// Fingerprint is the content digest and file facts captured in one read
type Fingerprint struct {
	Path      string
	Digest    string // hex SHA-256
	Size      int64
	ModTime   time.Time
	BirthTime time.Time // zero when the platform does not report it
}
