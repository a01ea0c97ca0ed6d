//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/Carmen-Shannon/nucleus-go/engine"
	"github.com/Carmen-Shannon/nucleus-go/engine/component"
	"github.com/Carmen-Shannon/nucleus-go/engine/config"
	"github.com/google/wire"
)

// InitializeEngine is the wire injector for the engine graph.
func InitializeEngine(cfg *config.Config, systems *component.Systems) (engine.Engine, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
