package guestnet

import (
	"context"
	"fmt"
	"strings"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
)

// WindowsNetIP moves the template's address binding to the new address on
// the same interface via PowerShell NetIPAddress cmdlets.
type WindowsNetIP struct {
}

func (WindowsNetIP) Family() models.OSFamily {
	return models.Windows
}

func (WindowsNetIP) Apply(ctx context.Context, runner remote.Runner, change NetworkChange) error {
	out, _ := runner.Run(ctx, powershell(
		fmt.Sprintf("(Get-NetIPAddress -AddressFamily IPv4 -IPAddress %s -ErrorAction SilentlyContinue).IPAddress", change.NewIP),
	))
	if strings.TrimSpace(out) == change.NewIP.String() {
		return nil
	}

	out, err := runner.Run(ctx, powershell(
		fmt.Sprintf("(Get-NetIPAddress -AddressFamily IPv4 -IPAddress %s -ErrorAction SilentlyContinue).InterfaceAlias", change.TemplateIP),
	))
	if err != nil {
		return fmt.Errorf("failed to enumerate interfaces: %w", err)
	}

	alias := strings.TrimSpace(out)
	if alias == "" {
		return fmt.Errorf("%w: no interface bound to %s", ErrConfigMismatch, change.TemplateIP)
	}

	// The channel rides on the address being removed, so remove and
	// assign must travel as one invocation: a separate assign would never
	// be delivered once the transport resets. The drop makes the command
	// fail mid-flight; the caller re-polls the new address.
	move := fmt.Sprintf("Remove-NetIPAddress -IPAddress %s -Confirm:$false; New-NetIPAddress -InterfaceAlias '%s' -IPAddress %s -PrefixLength %d",
		change.TemplateIP, alias, change.NewIP, change.PrefixLength)
	if change.Gateway != nil {
		move += fmt.Sprintf(" -DefaultGateway %s", change.Gateway)
	}

	runner.Run(ctx, powershell(move))

	return nil
}

func powershell(command string) string {
	return fmt.Sprintf(`powershell -NoProfile -Command "%s"`, command)
}
