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

// Command coredb is the command-line front end for the storage
// engine in coredb.dev/pkg/engine: it opens a database directory and
// runs SQL statements against it, either one at a time or as an
// interactive loop.
package main

import (
	"log"

	"coredb.dev/pkg/cmdmain"
)

func init() {
	log.SetOutput(cmdmain.Stderr)
}

func main() {
	cmdmain.Main()
}
