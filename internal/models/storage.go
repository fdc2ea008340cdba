package models

// ContentClass selects which kind of assets a storage must accept.
type ContentClass string

const (
	ContentImages       ContentClass = "images"
	ContentInstallMedia ContentClass = "iso"
)

// Storage is one storage entry reported by the control plane, decoded
// once at the client boundary.
type Storage struct {
	ID        string
	Type      string
	FreeBytes uint64
	Active    bool
}
