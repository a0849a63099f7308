// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log"
	"os"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
)

var config *cloud.Config

// SetupOS points the loader at the configs directory. GCP_RUNTIME may
// already select another runtime; it defaults to "local".
func SetupOS() (err error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the TOML files, applies the environment and validates the
// result. Invalid settings stop the process.
func GetConfig() *cloud.Config {
	if config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		c := cloud.NewConfig()
		if err := cloud.LoadConfig(c); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		cloud.ApplyEnvironment(c)
		if err := c.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v\n", err)
		}
		config = c
	}
	return config
}

// InitState builds the services, starts the indexing queue and the
// listeners.
func InitState(ctx context.Context, config *cloud.Config) (*app.StateManager, error) {
	state, err := app.InitState(ctx, config)
	if err != nil {
		return nil, err
	}
	state.Queue.Start()
	SetupListeners(ctx, state)
	return state, nil
}
