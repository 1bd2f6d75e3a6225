// Package ingest loads face detector output from local files or FTP and turns
// it into a model.Scene. JSON, YAML, CSV and XLSX documents are supported.
package ingest

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/resilience"
)

// DefaultDetectionThreshold is the detector confidence a face must exceed
// to be kept.
const DefaultDetectionThreshold = 0.4

// Options configures Load.
type Options struct {
	// DetectionThreshold drops faces whose known detection score is at or
	// below it. Faces without a score are kept.
	DetectionThreshold float64
	// FTPTimeout bounds dialing an ftp:// source. Zero uses 30s.
	FTPTimeout time.Duration
	// Retry governs FTP download attempts. A zero policy uses
	// resilience.DefaultPolicy.
	Retry resilience.Policy
}

// Format is a supported detector output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf returns the format implied by a file name's extension.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".csv":
		return FormatCSV, true
	case ".xlsx":
		return FormatXLSX, true
	}
	return "", false
}

// Supported reports whether name has a loadable extension.
func Supported(name string) bool {
	_, ok := FormatOf(name)
	return ok
}

// Load reads src, clamps boxes to the image extents and drops faces at or
// below opts.DetectionThreshold.
func Load(ctx context.Context, src string, opts Options) (*model.Scene, error) {
	scene, err := Read(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	filtered := scene.Filter(opts.DetectionThreshold)

	zap.L().Info("ingest: loaded scene",
		zap.String("source", src),
		zap.Int("faces", len(scene.Faces)),
		zap.Int("kept", len(filtered.Faces)),
		zap.Float64("threshold", opts.DetectionThreshold),
	)
	return &filtered, nil
}

// Read reads and parses src without applying the detection threshold.
// src is a local path or an ftp:// URL.
func Read(ctx context.Context, src string, opts Options) (*model.Scene, error) {
	name, data, err := readSource(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	format, ok := FormatOf(name)
	if !ok {
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(name))
	}

	scene, err := Parse(ctx, format, data)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", src)
	}
	if scene.Source == "" {
		scene.Source = src
	}
	scene.Clamp()
	return scene, nil
}

// Parse decodes a detector output document.
func Parse(ctx context.Context, format Format, data []byte) (*model.Scene, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(ctx, data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatCSV:
		return decodeCSV(ctx, data)
	case FormatXLSX:
		return decodeXLSX(ctx, data)
	default:
		return nil, eris.Errorf("ingest: unknown format %q", format)
	}
}

func readSource(ctx context.Context, src string, opts Options) (string, []byte, error) {
	if strings.HasPrefix(strings.ToLower(src), "ftp://") {
		u, err := url.Parse(src)
		if err != nil {
			return "", nil, eris.Wrap(err, "ingest: parse source url")
		}

		policy := opts.Retry
		if policy.Attempts == 0 {
			policy = resilience.DefaultPolicy()
		}
		fetcher := newFTPFetcher(opts.FTPTimeout)

		data, err := resilience.Retry(ctx, policy, "ftp download", func(ctx context.Context) ([]byte, error) {
			rc, err := fetcher.Download(ctx, src)
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		})
		if err != nil {
			return "", nil, eris.Wrapf(err, "ingest: download %s", src)
		}
		return path.Base(u.Path), data, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", nil, eris.Wrapf(err, "ingest: read %s", src)
	}
	return filepath.Base(src), data, nil
}
