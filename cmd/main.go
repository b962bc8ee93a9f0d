/*
Copyright 2025 Help Netizen Authors.

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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	callsync "github.com/help-netizen/twilio-front-integration-sub004"
	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/database"
	"github.com/help-netizen/twilio-front-integration-sub004/internal/notification"
)

// CLI encapsulates the root Cobra command.
type CLI struct {
	cmd *cobra.Command
}

// callsyncInstance holds the service instance and its configuration,
// shared by every subcommand.
type callsyncInstance struct {
	callsync *callsync.CallSync
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance
// before running any command.
func preRun(app *callsyncInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("callsync.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newCallsync, err := setupCallsync(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.callsync = newCallsync
		app.cnf = cnf

		return nil
	}
}

// setupCallsync creates the service instance with its data source
// connected from the provided configuration.
func setupCallsync(cfg *config.Configuration) (*callsync.CallSync, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newCallsync, err := callsync.NewCallSync(db)
	if err != nil {
		return nil, fmt.Errorf("error creating callsync: %v", err)
	}
	return newCallsync, nil
}

// NewCLI creates the command-line interface, wiring the server, workers
// and migration subcommands.
func NewCLI() *CLI {
	var configFile string
	b := &callsyncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "callsync",
		Short: "Telephony call event reconciliation service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./callsync.json", "Configuration file for callsync")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
