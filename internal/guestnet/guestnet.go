package guestnet

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
)

var (
	ErrUnknownOSFamily = errors.New("unknown os family")
	ErrConfigMismatch  = errors.New("guest network config does not match template address")
)

// NetworkChange rewrites a guest from the template's address to its own.
// Gateway is optional: when nil, no gateway directive is written.
type NetworkChange struct {
	TemplateIP   net.IP
	NewIP        net.IP
	PrefixLength int
	Gateway      net.IP
}

// Strategy rewrites a guest's network configuration over the remote-exec
// channel and restarts its networking. Implementations are idempotent:
// a guest already holding the new address is left untouched.
type Strategy interface {
	Family() models.OSFamily
	Apply(ctx context.Context, runner remote.Runner, change NetworkChange) error
}

func ForFamily(family models.OSFamily) (Strategy, error) {
	switch family {
	case models.Debian:
		return DebianInterfaces{}, nil
	case models.Ubuntu:
		return UbuntuNetplan{}, nil
	case models.Windows:
		return WindowsNetIP{}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownOSFamily, family)
}
