// Copyright 2025 Conveyor Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conf

import (
	"github.com/google/wire"

	"github.com/conveyorci/conveyor/pkg/httpx"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/storage"
)

var ProviderSet = wire.NewSet(ProvideConf, ProvideLogConf, ProvideHttpConf, ProvideStorageConf, ProvideEngineConf, ProvideRetentionConf)

func ProvideConf(configFile string) AppConfig {
	return NewConf(configFile)
}

func ProvideLogConf(appConf AppConfig) *log.Conf {
	return &appConf.Log
}

func ProvideHttpConf(appConf AppConfig) httpx.Http {
	return appConf.Http
}

func ProvideStorageConf(appConf AppConfig) *storage.Conf {
	return &appConf.Storage
}

func ProvideEngineConf(appConf AppConfig) Engine {
	return appConf.Engine
}

func ProvideRetentionConf(appConf AppConfig) Retention {
	return appConf.Retention
}
