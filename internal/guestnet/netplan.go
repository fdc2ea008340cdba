package guestnet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
	"gopkg.in/yaml.v3"
)

const netplanGlob = "/etc/netplan/*.yaml /etc/netplan/*.yml"

// UbuntuNetplan rewrites netplan descriptors and applies them live,
// without a reboot.
type UbuntuNetplan struct {
}

func (UbuntuNetplan) Family() models.OSFamily {
	return models.Ubuntu
}

func (UbuntuNetplan) Apply(ctx context.Context, runner remote.Runner, change NetworkChange) error {
	out, _ := runner.Run(ctx, fmt.Sprintf("ls %s 2>/dev/null", netplanGlob))

	files := strings.Fields(out)
	if len(files) == 0 {
		return fmt.Errorf("%w: no netplan descriptors found", ErrConfigMismatch)
	}

	var found, mutated bool
	for _, file := range files {
		content, err := runner.Run(ctx, fmt.Sprintf("cat %s", file))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		rewritten, ok, err := RewriteNetplan([]byte(content), change)
		if err != nil {
			return fmt.Errorf("failed to rewrite %s: %w", file, err)
		}

		if !ok {
			continue
		}
		found = true

		if bytes.Equal(rewritten, []byte(content)) {
			continue
		}

		writeCmd := fmt.Sprintf("cat > %s << 'EOF'\n%sEOF", file, rewritten)
		if _, err := runner.Run(ctx, writeCmd); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		mutated = true
	}

	if !found {
		return fmt.Errorf("%w: no descriptor contains %s", ErrConfigMismatch, change.TemplateIP)
	}

	if mutated {
		// Applying drops the channel while the address moves. The caller
		// re-polls the new address.
		runner.Run(ctx, "netplan apply")
	}

	return nil
}

// RewriteNetplan swaps the template address for the new one in a netplan
// document and replaces any gateway4 key on the matched interface. The
// second return reports whether the document mentions the template or the
// new address at all; a document already on the new address is returned
// unchanged.
func RewriteNetplan(doc []byte, change NetworkChange) ([]byte, bool, error) {
	var root map[string]any
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal netplan document: %w", err)
	}

	network, ok := root["network"].(map[string]any)
	if !ok {
		return doc, false, nil
	}

	ethernets, ok := network["ethernets"].(map[string]any)
	if !ok {
		return doc, false, nil
	}

	newCIDR := fmt.Sprintf("%s/%d", change.NewIP, change.PrefixLength)
	templateCIDR := fmt.Sprintf("%s/%d", change.TemplateIP, change.PrefixLength)

	var found, mutated bool
	for _, raw := range ethernets {
		iface, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		addresses, ok := iface["addresses"].([]any)
		if !ok {
			continue
		}

		for i, rawAddress := range addresses {
			address, ok := rawAddress.(string)
			if !ok {
				continue
			}

			switch address {
			case newCIDR:
				found = true
			case templateCIDR:
				found = true
				mutated = true
				addresses[i] = newCIDR

				delete(iface, "gateway4")
				if change.Gateway != nil {
					iface["gateway4"] = change.Gateway.String()
				}
			}
		}
	}

	if !mutated {
		return doc, found, nil
	}

	rewritten, err := yaml.Marshal(root)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal netplan document: %w", err)
	}

	return rewritten, true, nil
}
