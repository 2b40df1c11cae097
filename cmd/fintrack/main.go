/*Command line entry point: the web UI plus ledger subcommands.*/
package main

import (
	"github.com/alecthomas/kong"
)

// globals holds options shared by every command
type globals struct {
	EnvFile  string `name:"env-file" default:".env" help:"Optional .env file loaded before reading the environment."`
	LogLevel string `name:"log-level" help:"Override LOG_LEVEL (debug, info, warn, error)."`
}

// commands / args available
var commands struct {
	Globals globals `embed`

	Serve   serveCmd   `cmd help:"Run the web UI."`
	Add     addCmd     `cmd help:"Record a transaction."`
	Rm      rmCmd      `cmd help:"Delete a transaction by id."`
	Clear   clearCmd   `cmd help:"Delete every transaction."`
	List    listCmd    `cmd help:"Show all transactions, newest first."`
	Summary summaryCmd `cmd help:"Show income, expenses and balance."`
	Export  exportCmd  `cmd help:"Write the ledger as a JSON export document."`
	Watch   watchCmd   `cmd help:"Print ledger.saved notifications from AMQP."`
}

func main() {
	ctx := kong.Parse(&commands,
		kong.Name("fintrack"),
		kong.Description("Personal income and expense ledger."),
	)
	err := ctx.Run(&commands.Globals)
	ctx.FatalIfErrorf(err)
}
