package controlplane

import (
	"context"
	"testing"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeExecutor struct {
	commands [][]string
	output   []byte
	err      error
}

func (e *fakeExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	e.commands = append(e.commands, append([]string{command}, args...))

	return e.output, e.err
}

func Test_Clone(t *testing.T) {
	exec := &fakeExecutor{}
	client := New(Config{Node: "node1", Executor: exec})

	err := client.Clone(context.Background(), 100, 401, "worker1")
	assert.NoError(t, err)
	assert.Equal(t,
		[]string{"qm", "clone", "100", "401", "--name", "worker1", "--full", "1"},
		exec.commands[0],
	)
}

func Test_StartStop(t *testing.T) {
	exec := &fakeExecutor{}
	client := New(Config{Node: "node1", Executor: exec})

	assert.NoError(t, client.Start(context.Background(), 401))
	assert.NoError(t, client.Stop(context.Background(), 401))
	assert.Equal(t, []string{"qm", "start", "401"}, exec.commands[0])
	assert.Equal(t, []string{"qm", "stop", "401"}, exec.commands[1])
}

func Test_Configure_SortedAttributes(t *testing.T) {
	exec := &fakeExecutor{}
	client := New(Config{Node: "node1", Executor: exec})

	err := client.Configure(context.Background(), 401, map[string]string{
		"pool": "bulk",
		"net0": "virtio,bridge=vmbr0",
	})
	assert.NoError(t, err)
	assert.Equal(t,
		[]string{"qm", "set", "401", "--net0", "virtio,bridge=vmbr0", "--pool", "bulk"},
		exec.commands[0],
	)
}

func Test_ListStorages(t *testing.T) {
	testCases := []struct {
		name     string
		output   string
		expected []models.Storage
	}{
		{
			name:   "numeric capacity and integer flags",
			output: `[{"storage":"local","type":"dir","avail":53687091200,"active":1},{"storage":"tank","type":"zfspool","avail":214748364800,"active":0}]`,
			expected: []models.Storage{
				{ID: "local", Type: "dir", FreeBytes: 53687091200, Active: true},
				{ID: "tank", Type: "zfspool", FreeBytes: 214748364800, Active: false},
			},
		},
		{
			name:   "suffixed capacity and boolean flags",
			output: `[{"storage":"local","type":"dir","avail":"50GiB","active":true}]`,
			expected: []models.Storage{
				{ID: "local", Type: "dir", FreeBytes: 50 << 30, Active: true},
			},
		},
	}

	for _, tc := range testCases {
		exec := &fakeExecutor{output: []byte(tc.output)}
		client := New(Config{Node: "node1", Executor: exec})

		storages, err := client.ListStorages(context.Background(), models.ContentImages)
		assert.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, storages, tc.name)
		assert.Contains(t, exec.commands[0], "/nodes/node1/storage", tc.name)
	}
}

func Test_ListImages(t *testing.T) {
	exec := &fakeExecutor{output: []byte(`[{"volid":"local:iso/debian12.iso"},{"volid":"local:iso/ubuntu2404.iso"}]`)}
	client := New(Config{Node: "node1", Executor: exec})

	images, err := client.ListImages(context.Background(), "local")
	assert.NoError(t, err)
	assert.Equal(t, []string{"debian12.iso", "ubuntu2404.iso"}, images)
}
