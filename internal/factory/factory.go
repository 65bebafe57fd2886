package factory

import (
	"fmt"

	"github.com/anime-shed/stripreader/internal/analyzer"
	"github.com/anime-shed/stripreader/internal/config"
	"github.com/anime-shed/stripreader/internal/storage"
)

// LocatorFactory creates strip locators
type LocatorFactory interface {
	CreateLocator(backend string) (analyzer.Locator, error)
}

// StorageFactory creates artifact stores
type StorageFactory interface {
	CreateArtifactStore(cfg *config.Config) (storage.ArtifactStore, error)
}

// locatorFactory implements LocatorFactory
type locatorFactory struct{}

// NewLocatorFactory creates a new locator factory
func NewLocatorFactory() LocatorFactory {
	return &locatorFactory{}
}

// CreateLocator creates a locator for the named backend; empty means native
func (f *locatorFactory) CreateLocator(backend string) (analyzer.Locator, error) {
	if backend == "" {
		backend = analyzer.LocatorNative
	}
	return analyzer.NewLocator(backend)
}

// storageFactory implements StorageFactory
type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateArtifactStore creates the artifact store selected by ARTIFACT_STORE
func (f *storageFactory) CreateArtifactStore(cfg *config.Config) (storage.ArtifactStore, error) {
	switch cfg.ArtifactStore {
	case config.ArtifactStoreNone, "":
		return storage.NewNopArtifactStore(), nil
	case config.ArtifactStoreLocal:
		return storage.NewLocalArtifactStore(cfg.ArtifactDir)
	case config.ArtifactStoreAzure:
		return storage.NewAzureArtifactStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	default:
		return nil, fmt.Errorf("unsupported artifact store: %s", cfg.ArtifactStore)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	LocatorFactory LocatorFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		LocatorFactory: NewLocatorFactory(),
		StorageFactory: NewStorageFactory(),
	}
}
