package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/stripreader/internal/analyzer"
	"github.com/anime-shed/stripreader/internal/config"
	"github.com/anime-shed/stripreader/internal/factory"
	"github.com/anime-shed/stripreader/internal/logger"
	"github.com/anime-shed/stripreader/internal/observer"
	"github.com/anime-shed/stripreader/internal/repository"
	"github.com/anime-shed/stripreader/internal/service"
	"github.com/anime-shed/stripreader/internal/storage"
	"github.com/anime-shed/stripreader/internal/transport"
	"github.com/anime-shed/stripreader/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	profiles        analyzer.ProfileSet
	stripAnalyzer   analyzer.StripAnalyzer
	imageRepository repository.ImageRepository
	testResults     repository.TestResultRepository
	artifacts       storage.ArtifactStore
	events          *observer.EventPublisher
	metrics         *observer.MetricsObserver
	analysisService service.StripAnalysisService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory()

	profiles, err := analyzer.LoadProfiles(cfg.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	if _, err := profiles.Get(cfg.DefaultProfile); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PROFILE: %w", err)
	}

	locator, err := components.LocatorFactory.CreateLocator(cfg.LocatorBackend)
	if err != nil {
		return nil, err
	}
	artifacts, err := components.StorageFactory.CreateArtifactStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}
	testResults, err := repository.NewSQLiteTestResultRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open test result database: %w", err)
	}

	// Build dependency graph
	stripAnalyzer := analyzer.NewStripAnalyzer(locator, analyzer.NewQualityGate(nil))
	limits := storage.Limits{MaxBytes: cfg.MaxRequestBodySize, MaxPixels: cfg.MaxImagePixels}
	imageFetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout).WithLimits(limits)
	urlValidator := validation.NewURLValidator(cfg.URLPolicy())
	imageRepository := repository.NewImageRepository(imageFetcher, urlValidator, limits)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	analysisService := service.NewStripAnalysisService(
		imageRepository,
		testResults,
		artifacts,
		stripAnalyzer,
		profiles,
		events,
		service.Options{
			DefaultProfile:  cfg.DefaultProfile,
			AnalysisTimeout: cfg.AnalysisTimeout,
		},
	)
	handler := transport.NewHandler(analysisService, metrics, cfg)

	logger.WithField("locator", locator.Name()).
		WithField("artifact_store", artifacts.Kind()).
		WithField("profiles", profiles.Names()).
		Info("Container initialised")

	return &Container{
		config:          cfg,
		profiles:        profiles,
		stripAnalyzer:   stripAnalyzer,
		imageRepository: imageRepository,
		testResults:     testResults,
		artifacts:       artifacts,
		events:          events,
		metrics:         metrics,
		analysisService: analysisService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the analysis service
func (c *Container) Service() service.StripAnalysisService {
	return c.analysisService
}

// Close waits for pending events and releases the database and analyzer
func (c *Container) Close() error {
	c.events.Wait()
	if err := c.stripAnalyzer.Close(); err != nil {
		return err
	}
	return c.testResults.Close()
}
