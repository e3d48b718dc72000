//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/conveyorci/conveyor/internal/engine/bootstrap"
	"github.com/conveyorci/conveyor/internal/engine/conf"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/storage"
)

func initApp(configFile string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		conf.ProviderSet,
		log.ProviderSet,
		storage.ProviderSet,
		bootstrap.ProviderSet,
	))
}
