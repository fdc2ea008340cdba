package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeStorageProvider struct {
	storages []models.Storage
	err      error
}

func (p *fakeStorageProvider) ListStorages(ctx context.Context, class models.ContentClass) ([]models.Storage, error) {
	return p.storages, p.err
}

func Test_SelectStorage(t *testing.T) {
	testCases := []struct {
		name     string
		storages []models.Storage
		expected string
		wantErr  bool
		err      error
	}{
		{
			name: "largest active storage wins",
			storages: []models.Storage{
				{ID: "local", Type: "dir", FreeBytes: 50 << 30, Active: true},
				{ID: "tank", Type: "zfspool", FreeBytes: 200 << 30, Active: true},
			},
			expected: "tank",
		},
		{
			name: "inactive storages are skipped",
			storages: []models.Storage{
				{ID: "local", Type: "dir", FreeBytes: 50 << 30, Active: true},
				{ID: "tank", Type: "zfspool", FreeBytes: 200 << 30, Active: false},
			},
			expected: "local",
		},
		{
			name: "no active storage",
			storages: []models.Storage{
				{ID: "tank", Type: "zfspool", FreeBytes: 200 << 30, Active: false},
			},
			wantErr: true,
			err:     ErrStorageNotFound,
		},
		{
			name:    "no storage at all",
			wantErr: true,
			err:     ErrStorageNotFound,
		},
	}

	for _, tc := range testCases {
		provider := &fakeStorageProvider{storages: tc.storages}

		storage, err := SelectStorage(context.Background(), provider, models.ContentImages)
		if tc.wantErr {
			assert.ErrorIs(t, err, tc.err, tc.name)
		} else {
			assert.NoError(t, err, tc.name)
			assert.Equal(t, tc.expected, storage.ID, tc.name)
		}
	}
}

func Test_SelectStorage_ProviderError(t *testing.T) {
	provider := &fakeStorageProvider{err: errors.New("control plane unreachable")}

	_, err := SelectStorage(context.Background(), provider, models.ContentImages)
	assert.Error(t, err)
}

func Test_ParseCapacity(t *testing.T) {
	testCases := []struct {
		input    string
		expected uint64
		wantErr  bool
	}{
		{input: "50G", expected: 50_000_000_000},
		{input: "512M", expected: 512_000_000},
		{input: "1GiB", expected: 1 << 30},
		{input: "1024", expected: 1024},
		{input: "lots", wantErr: true},
	}

	for _, tc := range testCases {
		actual, err := ParseCapacity(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
		} else {
			assert.NoError(t, err, tc.input)
			assert.Equal(t, tc.expected, actual, tc.input)
		}
	}
}

func Test_DiskSpecifier(t *testing.T) {
	testCases := []struct {
		storageType string
		sizeGB      int
		expected    string
	}{
		{storageType: "lvmthin", sizeGB: 32, expected: "32"},
		{storageType: "zfspool", sizeGB: 8, expected: "8"},
		{storageType: "dir", sizeGB: 32, expected: "32G"},
		{storageType: "nfs", sizeGB: 8, expected: "8G"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, DiskSpecifier(tc.storageType, tc.sizeGB))
	}
}

func Test_ParseRemoteSource(t *testing.T) {
	source := "debian 12,https://example.org/debian12.iso\n\nubuntu 24.04,https://example.org/ubuntu2404.iso\n"

	entries, err := ParseRemoteSource(strings.NewReader(source))
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "debian 12", entries[0].DisplayName)
	assert.Equal(t, models.SourceRemote, entries[0].Kind)
	assert.Equal(t, "https://example.org/ubuntu2404.iso", entries[1].Location)
}

func Test_ParseRemoteSource_Malformed(t *testing.T) {
	_, err := ParseRemoteSource(strings.NewReader("no url here\n"))
	assert.ErrorIs(t, err, ErrMalformedCatalog)
}

func Test_MergeAndView(t *testing.T) {
	local := []string{"debian12.iso", "ubuntu2404.iso"}
	remote := []models.CatalogEntry{
		{DisplayName: "alpine", Kind: models.SourceRemote, Location: "https://example.org/alpine.iso"},
		{DisplayName: "fedora", Kind: models.SourceRemote, Location: "https://example.org/fedora.iso"},
		{DisplayName: "arch", Kind: models.SourceRemote, Location: "https://example.org/arch.iso"},
	}

	merged := Merge(local, remote)
	assert.Len(t, merged, 5)
	assert.Equal(t, models.SourceLocal, merged[0].Kind)
	assert.Equal(t, "debian12.iso", merged[0].DisplayName)
	assert.Equal(t, "alpine", merged[2].DisplayName)

	view, err := NewView(merged)
	assert.NoError(t, err)
	assert.Equal(t, 1, view.PageCount())
	assert.Len(t, view.Page(), 5)
	assert.False(t, view.Next())
	assert.False(t, view.Prev())

	entry, err := view.Select(3)
	assert.NoError(t, err)
	assert.Equal(t, "alpine", entry.DisplayName)
	assert.Equal(t, "https://example.org/alpine.iso", entry.Location)

	_, err = view.Select(6)
	assert.ErrorIs(t, err, ErrNoSuchEntry)
}

func Test_View_Pagination(t *testing.T) {
	entries := make([]models.CatalogEntry, 45)
	for i := range entries {
		entries[i] = models.CatalogEntry{DisplayName: "entry", Kind: models.SourceLocal}
	}

	view, err := NewView(entries)
	assert.NoError(t, err)
	assert.Equal(t, 3, view.PageCount())
	assert.Len(t, view.Page(), PageSize)

	assert.True(t, view.Next())
	assert.True(t, view.Next())
	assert.Len(t, view.Page(), 5)
	assert.False(t, view.Next())

	assert.True(t, view.Prev())
	assert.Equal(t, 2, view.PageNumber())
}

func Test_NewView_Empty(t *testing.T) {
	_, err := NewView(nil)
	assert.ErrorIs(t, err, ErrCatalogEmpty)
}
