package builder

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/flate"

	"github.com/oshokin/pack-publisher/internal/logger"
)

const (
	// MetadataFilename is the pack metadata file expected at the assets root
	// and placed at the archive root.
	MetadataFilename = "pack.mcmeta"

	// assetsDirName is the asset tree directory under the assets root.
	assetsDirName = "assets"

	// packFormatKey is the rewritten field inside the "pack" object.
	packFormatKey = "pack_format"

	// packSectionKey is the top-level object holding pack metadata.
	packSectionKey = "pack"

	// artifactFileMode is the permission for produced archives.
	artifactFileMode os.FileMode = 0o644
)

var (
	// ErrAssetsMissing is returned when the asset tree is absent or empty.
	// It is a configuration error and fatal for the run.
	ErrAssetsMissing = errors.New("assets directory is missing or empty")

	// ErrMetadataInvalid is returned when the pack.mcmeta template cannot be
	// parsed or lacks the pack section. Also fatal for the run.
	ErrMetadataInvalid = errors.New("metadata template is invalid")
)

// Artifact is one built, uploadable archive. It owns its file on disk and is
// discarded after the upload attempt regardless of outcome.
type Artifact struct {
	// Path is the archive location on disk.
	Path string
	// Size is the archive size in bytes.
	Size int64

	// temporary marks artifacts whose file should be removed on Close.
	temporary bool
}

// Open returns a reader over the archive contents.
func (a *Artifact) Open() (io.ReadCloser, error) {
	file, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return file, nil
}

// Close removes the backing file of temporary artifacts.
func (a *Artifact) Close() error {
	if a == nil || !a.temporary {
		return nil
	}

	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}

	return nil
}

// Service builds versioned pack archives from a static asset tree.
type Service struct {
	assetsRoot string
}

// New creates a builder over the provided assets root. The root must contain
// the assets/ tree and the pack.mcmeta template.
func New(assetsRoot string) *Service {
	return &Service{
		assetsRoot: filepath.Clean(assetsRoot),
	}
}

// Build produces a temporary archive for one game version: the asset tree
// plus a metadata file whose pack_format field is rewritten to the given
// code. Output is deterministic for identical inputs: entries are written in
// lexical path order with normalized timestamps, and the metadata is
// re-marshaled with sorted keys.
func (s *Service) Build(ctx context.Context, gameVersion string, format int) (*Artifact, error) {
	output, err := os.CreateTemp("", "pack-publisher-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}

	artifact, err := s.buildInto(ctx, output, gameVersion, format)
	if err != nil {
		_ = output.Close()
		_ = os.Remove(output.Name())

		return nil, err
	}

	artifact.temporary = true

	return artifact, nil
}

// BuildTo writes the archive to an explicit path and keeps it on disk,
// supporting local one-off builds.
func (s *Service) BuildTo(ctx context.Context, gameVersion string, format int, outputPath string) (*Artifact, error) {
	output, err := os.OpenFile(filepath.Clean(outputPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, artifactFileMode)
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}

	artifact, err := s.buildInto(ctx, output, gameVersion, format)
	if err != nil {
		_ = output.Close()
		_ = os.Remove(outputPath)

		return nil, err
	}

	return artifact, nil
}

// buildInto assembles the archive into the opened output file.
func (s *Service) buildInto(ctx context.Context, output *os.File, gameVersion string, format int) (*Artifact, error) {
	metadata, err := s.renderMetadata(format)
	if err != nil {
		return nil, err
	}

	assetFiles, err := s.collectAssetFiles()
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Building artifact",
		"version", gameVersion, "format", format, "asset_files", len(assetFiles))

	archive := zip.NewWriter(output)
	archive.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if err = writeArchiveEntry(archive, MetadataFilename, metadata); err != nil {
		return nil, err
	}

	for _, assetPath := range assetFiles {
		contents, readErr := os.ReadFile(filepath.Join(s.assetsRoot, assetPath))
		if readErr != nil {
			return nil, fmt.Errorf("read asset %s: %w", assetPath, readErr)
		}

		if err = writeArchiveEntry(archive, assetPath, contents); err != nil {
			return nil, err
		}
	}

	if err = archive.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	info, err := output.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	if err = output.Close(); err != nil {
		return nil, fmt.Errorf("close artifact: %w", err)
	}

	return &Artifact{
		Path: output.Name(),
		Size: info.Size(),
	}, nil
}

// renderMetadata loads the template and rewrites exactly the pack_format
// field, leaving every other field byte-identical. Re-marshaling a raw
// message map keeps unknown fields and yields sorted keys, so the result is
// deterministic for a given (template, format) pair.
func (s *Service) renderMetadata(format int) ([]byte, error) {
	templatePath := filepath.Join(s.assetsRoot, MetadataFilename)

	contents, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataInvalid, err)
	}

	var document map[string]json.RawMessage
	if err = json.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataInvalid, err)
	}

	packSection, ok := document[packSectionKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q object", ErrMetadataInvalid, packSectionKey)
	}

	var packFields map[string]json.RawMessage
	if err = json.Unmarshal(packSection, &packFields); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMetadataInvalid, err)
	}

	packFields[packFormatKey] = json.RawMessage(strconv.Itoa(format))

	rewrittenSection, err := json.Marshal(packFields)
	if err != nil {
		return nil, fmt.Errorf("encode pack section: %w", err)
	}

	document[packSectionKey] = rewrittenSection

	rendered, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	return append(rendered, '\n'), nil
}

// collectAssetFiles walks the asset tree and returns slash-separated relative
// paths in lexical order.
func (s *Service) collectAssetFiles() ([]string, error) {
	assetsDir := filepath.Join(s.assetsRoot, assetsDirName)

	info, err := os.Stat(assetsDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrAssetsMissing, assetsDir)
	}

	var files []string

	err = filepath.WalkDir(assetsDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			return nil
		}

		relative, relErr := filepath.Rel(s.assetsRoot, path)
		if relErr != nil {
			return relErr
		}

		files = append(files, filepath.ToSlash(relative))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk assets: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAssetsMissing, assetsDir)
	}

	return files, nil
}

// writeArchiveEntry adds one file with a normalized header, keeping archives
// reproducible across builds.
func writeArchiveEntry(archive *zip.Writer, name string, contents []byte) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}

	entry, err := archive.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}

	if _, err = entry.Write(contents); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}

	return nil
}
