// Package translate provides the machine-translation capability used by
// back-translation: a model served by a translation server, addressed either by
// a local checkpoint directory or by a name from the server's model registry.
package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fractal-lba/textaug/internal/remote"
)

// ErrModelUnavailable is returned when a translation model cannot be loaded.
var ErrModelUnavailable = errors.New("translate: model unavailable")

// Translator translates text from one fixed language into another.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Options describes one translation direction.
type Options struct {
	// ModelPath is a checkpoint directory when FromLocal, else a registry name
	// such as "transformer.wmt19.de-en".
	ModelPath string
	// Checkpoints is a colon-separated list of checkpoint files inside ModelPath.
	Checkpoints string
	FromLocal   bool
	// Endpoint is the translation server address.
	Endpoint string
	Timeout  time.Duration
	RPS      float64
}

// BPECodesFile must sit next to local checkpoints.
const BPECodesFile = "bpecodes"

// Load validates opts and returns a Translator bound to the model. Failures
// are fatal: a missing checkpoint, an unhealthy server or an unknown registry
// name means the model can never serve requests.
func Load(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.ModelPath) == "" {
		return nil, fmt.Errorf("%w: model path is required", ErrModelUnavailable)
	}

	if opts.FromLocal {
		if err := checkCheckpoint(opts.ModelPath, opts.Checkpoints); err != nil {
			return nil, err
		}
	}

	rc, err := remote.New(remote.Options{
		BaseURL: opts.Endpoint,
		Timeout: opts.Timeout,
		RPS:     opts.RPS,
		Model:   opts.ModelPath,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	c := &Client{rc: rc, model: opts.ModelPath, checkpoints: opts.Checkpoints, local: opts.FromLocal}

	if opts.FromLocal {
		if err := rc.Health(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	} else {
		models, err := c.Models(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: listing models: %v", ErrModelUnavailable, err)
		}
		if !slices.Contains(models, opts.ModelPath) {
			return nil, fmt.Errorf("%w: %q not found in registry", ErrModelUnavailable, opts.ModelPath)
		}
	}
	return c, nil
}

func checkCheckpoint(dir, checkpoints string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrModelUnavailable, dir)
	}
	if strings.TrimSpace(checkpoints) == "" {
		return fmt.Errorf("%w: no checkpoint files given for %s", ErrModelUnavailable, dir)
	}

	files := append(strings.Split(checkpoints, ":"), BPECodesFile)
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	}
	return nil
}

// Client is a Translator served by a translation server.
//
// Request:  POST /translate {"model", "checkpoint_file", "local", "text"}
// Response: {"translation": "..."}
// Registry: GET /models -> ["transformer.wmt19.de-en", ...]
type Client struct {
	rc          *remote.Client
	model       string
	checkpoints string
	local       bool
}

type translateRequest struct {
	Model          string `json:"model"`
	CheckpointFile string `json:"checkpoint_file,omitempty"`
	Local          bool   `json:"local"`
	Text           string `json:"text"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

// Translate implements Translator.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	var resp translateResponse
	req := translateRequest{Model: c.model, CheckpointFile: c.checkpoints, Local: c.local, Text: text}
	if err := c.rc.PostJSON(ctx, "/translate", req, &resp); err != nil {
		return "", fmt.Errorf("translation with %s failed: %w", c.model, err)
	}
	return resp.Translation, nil
}

// Models lists the names known to the server's registry.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var models []string
	if err := c.rc.GetJSON(ctx, "/models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

// Model returns the model name or checkpoint directory.
func (c *Client) Model() string { return c.model }
