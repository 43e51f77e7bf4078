package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/vbonduro/wastecapture/internal/boltstore"
	"github.com/vbonduro/wastecapture/internal/capture"
	"github.com/vbonduro/wastecapture/internal/config"
	"github.com/vbonduro/wastecapture/internal/db"
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/location"
	"github.com/vbonduro/wastecapture/internal/location/ipgeo"
	"github.com/vbonduro/wastecapture/internal/location/nominatim"
	"github.com/vbonduro/wastecapture/internal/logging"
	"github.com/vbonduro/wastecapture/internal/photostore"
	"github.com/vbonduro/wastecapture/internal/photostore/local"
	"github.com/vbonduro/wastecapture/internal/store"
	"github.com/vbonduro/wastecapture/internal/vision"
	claudevision "github.com/vbonduro/wastecapture/internal/vision/claude"
	ollamavision "github.com/vbonduro/wastecapture/internal/vision/ollama"
	"github.com/vbonduro/wastecapture/internal/vision/simulated"
)

// itemStore is implemented by both repository backends.
type itemStore interface {
	List(ctx context.Context) []domain.CapturedItem
	Get(ctx context.Context, id string) (*domain.CapturedItem, error)
	Save(ctx context.Context, item domain.CapturedItem) error
	Update(ctx context.Context, id string, u domain.ItemUpdate) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	items   itemStore
	closers []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){cleanup}}

	if err := a.openItems(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openItems() error {
	switch a.cfg.StoreBackend {
	case "bolt":
		items, err := boltstore.Open(a.cfg.BoltPath, a.logger)
		if err != nil {
			a.logger.Error("failed to open bolt store", "error", err)
			return err
		}
		a.items = items
		a.addCloser("bolt store", items.Close)
		a.logger.Info("using bolt item store", "path", a.cfg.BoltPath)
	case "sqlite", "":
		database, err := db.Open(a.cfg.DBPath)
		if err != nil {
			a.logger.Error("failed to open database", "error", err)
			return err
		}
		a.items = store.NewItemStore(database, a.logger)
		a.addCloser("database", database.Close)
		a.logger.Info("using sqlite item store", "path", a.cfg.DBPath)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", a.cfg.StoreBackend)
	}
	return nil
}

func (a *app) addCloser(label string, closeFn func() error) {
	a.closers = append(a.closers, func() {
		if err := closeFn(); err != nil {
			a.logger.Error("failed to close resource", "label", label, "error", err)
		}
	})
}

// close runs closers in reverse order so the logger closes last.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) photoStore() (photostore.PhotoStore, error) {
	photos, err := local.NewLocalPhotoStore(a.cfg.PhotoPath)
	if err != nil {
		a.logger.Error("failed to initialize photo store", "error", err)
		return nil, err
	}
	return photos, nil
}

func newClassifier(cfg *config.Config, photos photostore.PhotoStore, logger *slog.Logger) (vision.Classifier, error) {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeClassifier(cfg.ClaudeAPIKey, cfg.ClaudeModel, photos), nil
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaClassifier(cfg.OllamaHost, cfg.OllamaModel, photos), nil
	case "simulated", "":
		logger.Info("using simulated vision backend", "delay", cfg.ClassifyDelay.String())
		return simulated.NewClassifier(cfg.SimulatedLabel, cfg.ClassifyDelay), nil
	default:
		return nil, fmt.Errorf("unknown VISION_BACKEND %q", cfg.VisionBackend)
	}
}

// newLocator builds the location chain, or returns nil when location
// enrichment is disabled.
func newLocator(cfg *config.Config, logger *slog.Logger) (capture.Locator, error) {
	if !cfg.LocationEnabled {
		logger.Info("location enrichment disabled")
		return nil, nil
	}

	opts := []location.Option{
		location.WithFallback(ipgeo.NewFixer(cfg.IPGeoURL)),
		location.WithGeocoder(nominatim.NewGeocoder(cfg.NominatimURL, cfg.NominatimAgent)),
		location.WithFixTimeout(cfg.LocationTimeout),
	}

	lat, lon, ok, err := cfg.DevicePosition()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, location.WithNative(location.StaticFixer{Latitude: lat, Longitude: lon}, nil))
	}
	return location.NewResolver(logger, opts...), nil
}

func newWorkflowFactory(a *app, classifier vision.Classifier, locator capture.Locator) func() *capture.Workflow {
	return func() *capture.Workflow {
		opts := []capture.WorkflowOption{capture.WithClassifyTimeout(a.cfg.ClassifyTimeout)}
		if locator != nil {
			opts = append(opts, capture.WithLocator(locator))
		}
		return capture.NewWorkflow(classifier, a.items, a.logger, opts...)
	}
}
