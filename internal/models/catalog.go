package models

// SourceKind tells whether a catalog entry is already staged on a storage
// or has to be fetched from a remote location first.
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRemote
)

func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	}
	return "unknown"
}

// CatalogEntry is one selectable installable image. Location is empty for
// local entries and holds the download URL for remote ones.
type CatalogEntry struct {
	DisplayName string
	Kind        SourceKind
	Location    string
}
