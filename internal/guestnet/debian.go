package guestnet

import (
	"context"
	"fmt"
	"strings"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
)

const interfacesPath = "/etc/network/interfaces"

// DebianInterfaces rewrites ifupdown-style configuration in
// /etc/network/interfaces.
type DebianInterfaces struct {
}

func (DebianInterfaces) Family() models.OSFamily {
	return models.Debian
}

func (DebianInterfaces) Apply(ctx context.Context, runner remote.Runner, change NetworkChange) error {
	newCIDR := fmt.Sprintf("%s/%d", change.NewIP, change.PrefixLength)
	templateCIDR := fmt.Sprintf("%s/%d", change.TemplateIP, change.PrefixLength)

	// Already holding the new address: nothing to rewrite.
	if _, err := runner.Run(ctx, fmt.Sprintf("grep -q 'address %s' %s", sedEscape(newCIDR), interfacesPath)); err == nil {
		return nil
	}

	// Guard on the exact pattern the rewrite consumes: a bare-IP match
	// would let an address+netmask layout slip through the sed as a
	// silent no-op, after the gateway directives were already stripped.
	if _, err := runner.Run(ctx, fmt.Sprintf("grep -q 'address %s' %s", sedEscape(templateCIDR), interfacesPath)); err != nil {
		return fmt.Errorf("%w: no line holds address %s", ErrConfigMismatch, templateCIDR)
	}

	if _, err := runner.Run(ctx, fmt.Sprintf(`sed -i '/^[[:space:]]*gateway[[:space:]]/d' %s`, interfacesPath)); err != nil {
		return fmt.Errorf("failed to drop gateway directives: %w", err)
	}

	if _, err := runner.Run(ctx, fmt.Sprintf("sed -i 's#%s#%s#g' %s", sedEscape(templateCIDR), newCIDR, interfacesPath)); err != nil {
		return fmt.Errorf("failed to rewrite address: %w", err)
	}

	if change.Gateway != nil {
		if _, err := runner.Run(ctx, fmt.Sprintf(`sed -i '\#address %s#a gateway %s' %s`, sedEscape(newCIDR), change.Gateway, interfacesPath)); err != nil {
			return fmt.Errorf("failed to insert gateway directive: %w", err)
		}
	}

	// Restarting networking drops the channel mid-command, so the error
	// is meaningless here. The caller re-polls the new address.
	runner.Run(ctx, "systemctl restart networking")

	return nil
}

func sedEscape(s string) string {
	return strings.ReplaceAll(s, ".", `\.`)
}
