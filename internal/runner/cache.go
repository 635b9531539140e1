package runner

import (
	"context"
	"fmt"
	"log/slog"

	"episplit/internal/detect"
	"episplit/internal/logging"
	"episplit/internal/scancache"
)

// cachedDetector serves a detector's output from the scan cache when the
// file and parameters are unchanged. Cache trouble is logged and degraded
// to a plain scan, never surfaced.
type cachedDetector struct {
	inner  detect.Detector
	store  *scancache.Store
	params string
	logger *slog.Logger
}

func (r *Runner) cached(inner detect.Detector) detect.Detector {
	if r.cache == nil {
		return inner
	}
	d := r.cfg.Detection
	params := fmt.Sprintf("th=%.1f,sd=%.2f,bd=%.2f,sc=%.2f",
		d.SilenceThresholdDB, d.SilenceMinDuration, d.BlackMinDuration, d.SceneThreshold)
	return &cachedDetector{
		inner:  inner,
		store:  r.cache,
		params: params,
		logger: logging.WithComponent(r.logger, "scancache"),
	}
}

func (d *cachedDetector) Name() string { return d.inner.Name() }

func (d *cachedDetector) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	params := fmt.Sprintf("%s|%.3f-%.3f", d.params, window.Start, window.End)
	key, keyErr := scancache.KeyFor(src.Path, d.inner.Name(), params)
	if keyErr == nil {
		raws, ok, err := d.store.Get(ctx, key)
		if err != nil {
			d.logger.Warn("cache read failed", slog.String(logging.FieldDetector, d.inner.Name()), slog.Any("error", err))
		} else if ok {
			return raws, nil
		}
	}

	raws, err := d.inner.Detect(ctx, src, window)
	if err != nil {
		return nil, err
	}
	if keyErr == nil {
		if err := d.store.Put(ctx, key, raws); err != nil {
			d.logger.Warn("cache write failed", slog.String(logging.FieldDetector, d.inner.Name()), slog.Any("error", err))
		}
	}
	return raws, nil
}
