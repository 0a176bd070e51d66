package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/fractal-lba/textaug/internal/randx"
	"github.com/gomlx/go-huggingface/hub"
)

// ArtifactOptions describes where an embedding file comes from.
type ArtifactOptions struct {
	// Paths are local files or gs://bucket/object URLs. When several are given one
	// is picked at random.
	Paths []string
	// FromLocal=false forces the hub download even when Paths is set.
	FromLocal bool
	// Language selects the default hub repository ("de" -> facebook/fasttext-de-vectors).
	Language string
	HubRepo  string
	HubFile  string
	HubToken string
	// HubEndpoint overrides the hub address (HF_ENDPOINT, else huggingface.co).
	HubEndpoint string
	// CacheDir receives files downloaded from GCS and, when set, replaces the
	// hub cache directory.
	CacheDir string
}

// DefaultHubFile is the fastText binary model every facebook/fasttext-<lang>-vectors
// repository ships.
const DefaultHubFile = "model.bin"

// ResolveArtifact returns a local path to the embedding file described by opts.
//
// With several candidate paths the choice is drawn from rng reseeded from the
// wall clock, and rng's previous state is restored afterwards so constructing
// a strategy never shifts the caller's random sequence.
func ResolveArtifact(ctx context.Context, opts ArtifactOptions, rng *randx.Source, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !opts.FromLocal || len(opts.Paths) == 0 {
		return downloadFromHub(opts, logger)
	}

	path := opts.Paths[0]
	if len(opts.Paths) > 1 {
		if err := rng.Isolated(randx.ClockSeed(), func(r *rand.Rand) {
			path = randx.Choice(r, opts.Paths)
		}); err != nil {
			return "", fmt.Errorf("failed to restore random state: %w", err)
		}
	}
	logger.Info("selected embedding", "path", path)

	if strings.HasPrefix(path, "gs://") {
		return downloadFromGCS(ctx, path, opts.CacheDir, logger)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	return path, nil
}

func downloadFromHub(opts ArtifactOptions, logger *slog.Logger) (string, error) {
	repoID := opts.HubRepo
	if repoID == "" {
		lang := opts.Language
		if lang == "" {
			lang = "de"
		}
		repoID = fmt.Sprintf("facebook/fasttext-%s-vectors", lang)
	}
	file := opts.HubFile
	if file == "" {
		file = DefaultHubFile
	}

	repo := hub.New(repoID)
	repo.Verbosity = 0
	if opts.HubToken != "" {
		repo = repo.WithAuth(opts.HubToken)
	}
	if opts.HubEndpoint != "" {
		repo = repo.WithEndpoint(opts.HubEndpoint)
	}
	if opts.CacheDir != "" {
		repo = repo.WithCacheDir(filepath.Join(opts.CacheDir, "hub"))
	}

	logger.Info("downloading embedding", "repo", repoID, "file", file)
	path, err := repo.DownloadFile(file)
	if err != nil {
		return "", fmt.Errorf("%w: hub %s/%s: %v", ErrArtifactUnavailable, repoID, file, err)
	}
	return path, nil
}

func downloadFromGCS(ctx context.Context, url, cacheDir string, logger *slog.Logger) (string, error) {
	bucket, object, ok := strings.Cut(strings.TrimPrefix(url, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return "", fmt.Errorf("%w: malformed gcs url %q", ErrArtifactUnavailable, url)
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "textaug")
	}
	dst := filepath.Join(cacheDir, bucket, filepath.FromSlash(object))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gcs client: %v", ErrArtifactUnavailable, err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrArtifactUnavailable, url, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: copy %s: %v", ErrArtifactUnavailable, url, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}

	logger.Info("downloaded embedding", "url", url, "bytes", n, "path", dst)
	return dst, nil
}
