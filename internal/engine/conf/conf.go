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
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/conveyorci/conveyor/internal/engine/trigger"
	"github.com/conveyorci/conveyor/pkg/httpx"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/storage"
)

// Engine holds run execution settings.
type Engine struct {
	// TemplateDir is scanned for *.yaml templates at startup.
	TemplateDir string
	// TemplateName is the template bound to the trigger dispatcher.
	TemplateName string
	// Workspace is the working directory stage commands run in.
	Workspace string
	// StageTimeout is the per-stage default in seconds; a stage's own
	// timeout wins.
	StageTimeout int
	// MaxHistory caps the in-memory run history; zero keeps everything.
	MaxHistory int
	Triggers   []trigger.FilterConf
}

// Retention holds artifact retention sweep settings.
type Retention struct {
	// SweepCron is a cron spec; empty disables the sweeper.
	SweepCron string
}

type AppConfig struct {
	Log       log.Conf
	Http      httpx.Http
	Storage   storage.Conf
	Engine    Engine
	Retention Retention
}

var (
	cfg  AppConfig
	once sync.Once
)

func NewConf(configFile string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(configFile)
		if err != nil {
			panic(fmt.Sprintf("load conf file error: %s", err))
		}
	})
	return cfg
}

// LoadConfigFile reads and watches the configuration file.
func LoadConfigFile(configFile string) (AppConfig, error) {
	config := viper.New()
	config.SetConfigFile(configFile)
	config.AddConfigPath("./conf.d")
	config.SetConfigName("config")
	config.SetConfigType("toml")
	if err := config.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %v", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("configuration changed, re-reading: %s", e.Name)
		if err := config.Unmarshal(&cfg); err != nil {
			log.Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}

	return cfg, nil
}
