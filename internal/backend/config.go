package backend

import (
	"fmt"

	"cassa/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.RemoteBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.RemoteBackend)
	}

	return Config{
		Type: backendType,

		MongoURI:        appConfig.MongoURI,
		MongoDatabase:   appConfig.MongoDatabase,
		MongoCollection: appConfig.MongoCollection,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == MongoBackend {
		if c.MongoURI == "" {
			return fmt.Errorf("Mongo URI is required for the mongo backend")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("Mongo database name is required for the mongo backend")
		}
		if c.MongoCollection == "" {
			return fmt.Errorf("Mongo collection name is required for the mongo backend")
		}
	}

	// Memory needs nothing; drive credentials are validated when the
	// client is constructed from the environment.
	return nil
}
