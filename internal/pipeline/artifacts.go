package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/fsutil"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// Importer downloads the packaged artifact of a finished run and extracts it.
type Importer struct {
	remote  core.PipelineRemote
	tempDir string
	logger  *logging.Logger
}

// NewImporter creates an importer bound to a remote.
func NewImporter(remote core.PipelineRemote) *Importer {
	return &Importer{
		remote: remote,
		logger: logging.NewNop(),
	}
}

// WithTempDir sets the parent of the per-import scratch directory. The OS
// temp dir is used when empty.
func (im *Importer) WithTempDir(dir string) *Importer {
	im.tempDir = dir
	return im
}

// WithLogger sets the logger.
func (im *Importer) WithLogger(l *logging.Logger) *Importer {
	im.logger = l
	return im
}

// Import downloads the first job's artifact of exec into a scratch directory
// and extracts it into destDir. The scratch directory is removed on every
// return path. Entries that would land outside destDir are rejected.
func (im *Importer) Import(ctx context.Context, exec *core.Execution, destDir string) (int, error) {
	if destDir == "" {
		return 0, core.ErrArtifactImport(core.CodeArtifactExtract, "no destination directory")
	}

	if im.tempDir != "" {
		if err := os.MkdirAll(im.tempDir, 0o750); err != nil {
			return 0, core.ErrArtifactImport(core.CodeArtifactFetch, "creating temp dir").WithCause(err)
		}
	}
	scratch, err := os.MkdirTemp(im.tempDir, "artifact-*")
	if err != nil {
		return 0, core.ErrArtifactImport(core.CodeArtifactFetch, "creating scratch dir").WithCause(err)
	}
	defer os.RemoveAll(scratch)

	archive, err := im.download(ctx, exec, scratch)
	if err != nil {
		return 0, err
	}

	n, err := extract(archive, destDir)
	if err != nil {
		return n, core.ErrArtifactImport(core.CodeArtifactExtract,
			fmt.Sprintf("extracting artifact of run %s", exec.ID)).WithCause(err)
	}

	im.logger.Info("artifacts imported", "run_id", exec.ID, "files", n, "dest", destDir)
	return n, nil
}

// TryImport is Import for callers that must not fail on artifact problems:
// errors are logged and reported as false.
func (im *Importer) TryImport(ctx context.Context, exec *core.Execution, destDir string) bool {
	if _, err := im.Import(ctx, exec, destDir); err != nil {
		im.logger.Warn("artifact import failed, continuing", "run_id", exec.ID, "error", err)
		return false
	}
	return true
}

func (im *Importer) download(ctx context.Context, exec *core.Execution, scratch string) (string, error) {
	stream, err := im.remote.ArtifactStream(ctx, exec)
	if err != nil {
		return "", core.ErrArtifactImport(core.CodeArtifactFetch,
			fmt.Sprintf("locating artifact of run %s", exec.ID)).WithCause(err)
	}
	defer stream.Body.Close()

	path := filepath.Join(scratch, "artifact.zip")
	f, err := os.Create(path)
	if err != nil {
		return "", core.ErrArtifactImport(core.CodeArtifactFetch, "creating archive file").WithCause(err)
	}
	size, err := io.Copy(f, stream.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", core.ErrArtifactImport(core.CodeArtifactFetch,
			fmt.Sprintf("downloading artifact %s", stream.Name)).WithCause(err)
	}

	im.logger.Debug("artifact downloaded", "run_id", exec.ID, "artifact", stream.Name, "size", fsutil.HumanSize(size))
	return path, nil
}

// extract unpacks a zip archive into destDir through an os.Root so that no
// entry can escape it.
func extract(archive, destDir string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return 0, err
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return 0, err
	}
	defer root.Close()

	files := 0
	for _, entry := range r.File {
		name := filepath.Clean(filepath.FromSlash(entry.Name))
		if !filepath.IsLocal(name) {
			return files, fmt.Errorf("archive entry %q escapes destination", entry.Name)
		}

		mode := entry.Mode()
		switch {
		case mode.IsDir():
			if err := root.MkdirAll(name, 0o750); err != nil {
				return files, fmt.Errorf("creating %s: %w", name, err)
			}
			continue
		case mode&os.ModeSymlink != 0:
			continue
		}

		if err := extractFile(root, name, entry); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func extractFile(root *os.Root, name string, entry *zip.File) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer rc.Close()

	if _, err := fsutil.WriteScoped(root, name, rc, entry.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
