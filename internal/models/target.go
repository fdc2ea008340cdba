package models

import "fmt"

// OSFamily identifies the guest operating system family of a template.
// Unknown families are rejected at input validation, never defaulted.
type OSFamily int

const (
	Debian OSFamily = iota
	Ubuntu
	Windows
)

func (f OSFamily) String() string {
	switch f {
	case Debian:
		return "debian"
	case Ubuntu:
		return "ubuntu"
	case Windows:
		return "windows"
	}
	return "unknown"
}

func ParseOSFamily(s string) (OSFamily, error) {
	switch s {
	case "debian":
		return Debian, nil
	case "ubuntu":
		return Ubuntu, nil
	case "windows":
		return Windows, nil
	}
	return 0, fmt.Errorf("unknown os family %q", s)
}

// Credential authenticates the remote-exec channel against a guest.
// Either PrivateKey or Password is set.
type Credential struct {
	User       string
	PrivateKey []byte
	Password   string
}
