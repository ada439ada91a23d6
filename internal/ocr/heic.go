package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 of the source file so converted
// artifacts can be cached under it.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// heicCommand returns the argv converting in to out for a supported converter.
func heicCommand(converter, in, out string) (string, []string, bool) {
	switch converter {
	case "heif-convert":
		return "heif-convert", []string{in, out}, true
	case "magick":
		return "magick", []string{in, out}, true
	case "sips":
		return "sips", []string{"-s", "format", "png", in, "--out", out}, true
	}
	return "", nil, false
}

// convertHEICtoPNG converts a HEIC/HEIF file to PNG. With a cache dir and a
// content hash the PNG is kept at {cacheDir}/{hash}.png and reused; cleanup is
// nil in that case. Otherwise the PNG lives in a temp dir removed by cleanup.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
	hashHex string,
) (string, []string, func(), error) {
	name, _, ok := heicCommand(converter, in, "")
	if !ok {
		return "", nil, nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	caching := cacheDir != "" && hashHex != ""
	cached := filepath.Join(cacheDir, hashHex+".png")
	if caching {
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "dc-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	_, args, _ := heicCommand(converter, in, out)
	if _, errb, err := r.Run(ctx, name, logger, args...); err != nil {
		cleanup()
		return "", []string{string(errb)}, nil, fmt.Errorf("%s failed: %w", name, err)
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if !caching {
		return out, nil, cleanup, nil
	}

	defer cleanup()
	if err := persistFile(out, cached); err != nil {
		// a concurrent conversion may have won the race
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			return cached, nil, nil, nil
		}
		return "", nil, nil, err
	}
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

// persistFile moves src to dst, copying when a rename crosses filesystems.
func persistFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	outF, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outF, in); err != nil {
		_ = outF.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := outF.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
