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
	"flag"
	"fmt"
	"os"
	"strings"

	"coredb.dev/pkg/cmdmain"
	"coredb.dev/pkg/sqlfront"
)

type execCmd struct {
	dataDir string
	config  string
}

func init() {
	cmdmain.RegisterCommand("exec", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := new(execCmd)
		flags.StringVar(&cmd.dataDir, "datadir", "", "Database directory (created if it doesn't exist).")
		flags.StringVar(&cmd.config, "config", "", "Optional JSON config file (see pkg/engine.Open).")
		return cmd
	})
}

func (c *execCmd) Describe() string {
	return "Run a single SQL statement and print its result."
}

func (c *execCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: coredb exec -datadir=DIR \"SELECT ...\"\n")
}

func (c *execCmd) Examples() []string {
	return []string{
		`-datadir=./data "SELECT sname, gradyear FROM student WHERE majorid = 10"`,
		`-datadir=./data "INSERT INTO student (sid, sname, majorid, gradyear) VALUES (1, 'joe', 10, 2021)"`,
	}
}

func (c *execCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("exec takes exactly one SQL statement argument")
	}
	if c.dataDir == "" && c.config == "" {
		return cmdmain.UsageError("-datadir or -config is required")
	}

	eng, err := openEngine(c.dataDir, c.config)
	if err != nil {
		return err
	}
	defer eng.Close()

	transaction, err := eng.NewTx()
	if err != nil {
		return err
	}

	result, err := sqlfront.Execute(transaction, eng.Catalog(), eng.Stats(), args[0])
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

func printResult(result sqlfront.Result) {
	if len(result.Fields) == 0 {
		fmt.Fprintf(cmdmain.Stdout, "%d row(s) affected\n", result.RowsAffected)
		return
	}
	fmt.Fprintln(cmdmain.Stdout, strings.Join(result.Fields, "\t"))
	for _, row := range result.Rows {
		vals := make([]string, len(result.Fields))
		for i, f := range result.Fields {
			vals[i] = row[f].String()
		}
		fmt.Fprintln(cmdmain.Stdout, strings.Join(vals, "\t"))
	}
}
