//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"entstore/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideEmbedder,
	ProvideRetention,
	ProvideStoreRegistry,
	ProvideRouter,
	ProvideServer,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
