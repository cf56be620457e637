/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"

	"coredb.dev/pkg/engine"
	"coredb.dev/pkg/jsonconfig"
)

// openEngine opens an Engine rooted at dataDir, optionally layering
// in extra settings (bufferPoolSize, statCache, ...) read from a
// config file. A bare dataDir with no config file is the common case
// for local experimentation.
func openEngine(dataDir, configPath string) (*engine.Engine, error) {
	cfg := jsonconfig.Obj{}
	if configPath != "" {
		read, err := jsonconfig.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", configPath, err)
		}
		cfg = read
	}
	if dataDir != "" {
		cfg["dataDir"] = dataDir
	}
	return engine.Open(cfg)
}
