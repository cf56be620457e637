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
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"coredb.dev/pkg/cmdmain"
	"coredb.dev/pkg/engine"
	"coredb.dev/pkg/sqlfront"
)

type replCmd struct {
	dataDir string
	config  string
}

func init() {
	cmdmain.RegisterCommand("repl", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(replCmd)
		flags.StringVar(&cmd.dataDir, "datadir", "", "Database directory (created if it doesn't exist).")
		flags.StringVar(&cmd.config, "config", "", "Optional JSON config file (see pkg/engine.Open).")
		return cmd
	})
}

func (c *replCmd) Describe() string {
	return "Read SQL statements from stdin, one per line, and print each result."
}

func (c *replCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: coredb repl -datadir=DIR\n")
}

func (c *replCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return cmdmain.UsageError("repl takes no arguments")
	}
	if c.dataDir == "" && c.config == "" {
		return cmdmain.UsageError("-datadir or -config is required")
	}

	eng, err := openEngine(c.dataDir, c.config)
	if err != nil {
		return err
	}
	defer eng.Close()

	scanner := bufio.NewScanner(cmdmain.Stdin)
	for {
		fmt.Fprint(cmdmain.Stdout, "coredb> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := c.runOne(eng, line); err != nil {
			fmt.Fprintf(cmdmain.Stdout, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (c *replCmd) runOne(eng *engine.Engine, line string) error {
	transaction, err := eng.NewTx()
	if err != nil {
		return err
	}
	result, err := sqlfront.Execute(transaction, eng.Catalog(), eng.Stats(), line)
	if err != nil {
		transaction.Rollback()
		return err
	}
	if err := transaction.Commit(); err != nil {
		return err
	}
	printResult(result)
	return nil
}
