package builder

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const metadataTemplate = `{
	"pack": {
		"pack_format": 1,
		"description": "Classic panorama resource pack",
		"supported_formats": [1, 99]
	},
	"credits": ["maintainers"]
}`

// writePackTree lays out a minimal resource pack under a temp directory.
func writePackTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, MetadataFilename), []byte(metadataTemplate), 0o600))

	textures := filepath.Join(root, "assets", "minecraft", "textures", "gui")
	require.NoError(t, os.MkdirAll(textures, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(textures, "panorama_0.png"), []byte("png-0"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(textures, "panorama_1.png"), []byte("png-1"), 0o600))

	return root
}

// readArchive returns file names in order and the metadata contents.
func readArchive(t *testing.T, path string) (names []string, metadata []byte) {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		names = append(names, file.Name)

		if file.Name == MetadataFilename {
			entry, openErr := file.Open()
			require.NoError(t, openErr)

			metadata, err = io.ReadAll(entry)
			require.NoError(t, err)
			require.NoError(t, entry.Close())
		}
	}

	return names, metadata
}

// TestBuild_ArchiveLayout checks entry placement and the pack_format rewrite.
func TestBuild_ArchiveLayout(t *testing.T) {
	t.Parallel()

	service := New(writePackTree(t))

	artifact, err := service.Build(context.Background(), "1.20.1", 12)
	require.NoError(t, err)

	defer func() {
		_ = artifact.Close()
	}()

	require.Positive(t, artifact.Size)

	names, metadata := readArchive(t, artifact.Path)
	require.Equal(t, []string{
		MetadataFilename,
		"assets/minecraft/textures/gui/panorama_0.png",
		"assets/minecraft/textures/gui/panorama_1.png",
	}, names)

	var document struct {
		Pack struct {
			PackFormat       int    `json:"pack_format"`
			Description      string `json:"description"`
			SupportedFormats []int  `json:"supported_formats"`
		} `json:"pack"`
		Credits []string `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(metadata, &document))

	// Exactly the pack_format field changed.
	require.Equal(t, 12, document.Pack.PackFormat)
	require.Equal(t, "Classic panorama resource pack", document.Pack.Description)
	require.Equal(t, []int{1, 99}, document.Pack.SupportedFormats)
	require.Equal(t, []string{"maintainers"}, document.Credits)
}

// TestBuild_Deterministic builds twice and compares listings and metadata bytes.
func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	service := New(writePackTree(t))

	first, err := service.Build(context.Background(), "1.20.1", 12)
	require.NoError(t, err)

	defer func() {
		_ = first.Close()
	}()

	second, err := service.Build(context.Background(), "1.20.1", 12)
	require.NoError(t, err)

	defer func() {
		_ = second.Close()
	}()

	firstNames, firstMetadata := readArchive(t, first.Path)
	secondNames, secondMetadata := readArchive(t, second.Path)

	require.Equal(t, firstNames, secondNames)
	require.Equal(t, firstMetadata, secondMetadata)

	// Normalized headers make the archives byte-identical, not just equivalent.
	firstBytes, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	secondBytes, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	require.Equal(t, firstBytes, secondBytes)
}

// TestBuild_AssetsMissing rejects absent and empty asset trees.
func TestBuild_AssetsMissing(t *testing.T) {
	t.Parallel()

	// No assets directory at all.
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, MetadataFilename), []byte(metadataTemplate), 0o600))

	_, err := New(root).Build(context.Background(), "1.20.1", 12)
	require.ErrorIs(t, err, ErrAssetsMissing)

	// Empty assets directory.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))

	_, err = New(root).Build(context.Background(), "1.20.1", 12)
	require.ErrorIs(t, err, ErrAssetsMissing)
}

// TestBuild_MetadataInvalid rejects unparseable and incomplete templates.
func TestBuild_MetadataInvalid(t *testing.T) {
	t.Parallel()

	root := writePackTree(t)

	// Unparseable JSON.
	require.NoError(t, os.WriteFile(filepath.Join(root, MetadataFilename), []byte("{broken"), 0o600))

	_, err := New(root).Build(context.Background(), "1.20.1", 12)
	require.ErrorIs(t, err, ErrMetadataInvalid)

	// Missing pack section.
	require.NoError(t, os.WriteFile(filepath.Join(root, MetadataFilename), []byte(`{"other": {}}`), 0o600))

	_, err = New(root).Build(context.Background(), "1.20.1", 12)
	require.ErrorIs(t, err, ErrMetadataInvalid)

	// Missing template file.
	require.NoError(t, os.Remove(filepath.Join(root, MetadataFilename)))

	_, err = New(root).Build(context.Background(), "1.20.1", 12)
	require.ErrorIs(t, err, ErrMetadataInvalid)
}

// TestBuildTo_KeepsArtifact writes to an explicit path that survives Close.
func TestBuildTo_KeepsArtifact(t *testing.T) {
	t.Parallel()

	service := New(writePackTree(t))
	outputPath := filepath.Join(t.TempDir(), "pack-1.20.1.zip")

	artifact, err := service.BuildTo(context.Background(), "1.20.1", 12, outputPath)
	require.NoError(t, err)
	require.Equal(t, outputPath, artifact.Path)

	require.NoError(t, artifact.Close())

	// Not temporary, so the file stays.
	_, err = os.Stat(outputPath)
	require.NoError(t, err)
}

// TestArtifact_CloseRemovesTemporary ensures temp archives are cleaned up.
func TestArtifact_CloseRemovesTemporary(t *testing.T) {
	t.Parallel()

	service := New(writePackTree(t))

	artifact, err := service.Build(context.Background(), "1.20.1", 12)
	require.NoError(t, err)

	require.NoError(t, artifact.Close())

	_, err = os.Stat(artifact.Path)
	require.ErrorIs(t, err, os.ErrNotExist)
}
