package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hogwarts-cloud/clonectl/internal/catalog"
	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/samber/lo"
)

const (
	InstanceCLI = "qm"
	APICLI      = "pvesh"
)

type CommandExecutor interface {
	Execute(ctx context.Context, command string, args ...string) ([]byte, error)
}

type Config struct {
	Node     string
	Executor CommandExecutor
}

// Client drives the control-plane CLI in its JSON output mode and decodes
// responses into typed DTOs once, at this boundary.
type Client struct {
	node string
	exec CommandExecutor
}

func (c *Client) Clone(ctx context.Context, sourceID, targetID int, name string) error {
	_, err := c.exec.Execute(ctx, InstanceCLI, "clone",
		strconv.Itoa(sourceID), strconv.Itoa(targetID),
		"--name", name, "--full", "1")
	if err != nil {
		return fmt.Errorf("failed to clone %d to %d: %w", sourceID, targetID, err)
	}

	return nil
}

func (c *Client) Configure(ctx context.Context, id int, attributes map[string]string) error {
	args := []string{"set", strconv.Itoa(id)}

	keys := lo.Keys(attributes)
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--"+key, attributes[key])
	}

	if _, err := c.exec.Execute(ctx, InstanceCLI, args...); err != nil {
		return fmt.Errorf("failed to configure %d: %w", id, err)
	}

	return nil
}

func (c *Client) Start(ctx context.Context, id int) error {
	if _, err := c.exec.Execute(ctx, InstanceCLI, "start", strconv.Itoa(id)); err != nil {
		return fmt.Errorf("failed to start %d: %w", id, err)
	}

	return nil
}

func (c *Client) Stop(ctx context.Context, id int) error {
	if _, err := c.exec.Execute(ctx, InstanceCLI, "stop", strconv.Itoa(id)); err != nil {
		return fmt.Errorf("failed to stop %d: %w", id, err)
	}

	return nil
}

type storageDTO struct {
	Storage string   `json:"storage"`
	Type    string   `json:"type"`
	Avail   capacity `json:"avail"`
	Active  flag     `json:"active"`
}

func (c *Client) ListStorages(ctx context.Context, class models.ContentClass) ([]models.Storage, error) {
	output, err := c.exec.Execute(ctx, APICLI, "get",
		fmt.Sprintf("/nodes/%s/storage", c.node),
		"--content", string(class),
		"--output-format", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to list storages: %w", err)
	}

	var dtos []storageDTO
	if err := json.Unmarshal(output, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage list: %w", err)
	}

	return lo.Map(dtos, func(dto storageDTO, _ int) models.Storage {
		return models.Storage{
			ID:        dto.Storage,
			Type:      dto.Type,
			FreeBytes: uint64(dto.Avail),
			Active:    bool(dto.Active),
		}
	}), nil
}

type contentDTO struct {
	VolID string `json:"volid"`
}

func (c *Client) ListImages(ctx context.Context, storageID string) ([]string, error) {
	output, err := c.exec.Execute(ctx, APICLI, "get",
		fmt.Sprintf("/nodes/%s/storage/%s/content", c.node, storageID),
		"--content", string(models.ContentInstallMedia),
		"--output-format", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var dtos []contentDTO
	if err := json.Unmarshal(output, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content list: %w", err)
	}

	return lo.Map(dtos, func(dto contentDTO, _ int) string {
		// volid has the form storage:class/name.
		if _, name, ok := strings.Cut(dto.VolID, "/"); ok {
			return name
		}

		return dto.VolID
	}), nil
}

// capacity accepts both numeric byte counts and suffixed strings, which
// the CLI emits depending on version.
type capacity uint64

func (c *capacity) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		bytes, err := catalog.ParseCapacity(s)
		if err != nil {
			return err
		}

		*c = capacity(bytes)

		return nil
	}

	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*c = capacity(v)

	return nil
}

// flag accepts both 0/1 and booleans.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		return fmt.Errorf("invalid flag value %q", data)
	}

	return nil
}

func New(config Config) *Client {
	return &Client{
		node: config.Node,
		exec: config.Executor,
	}
}
