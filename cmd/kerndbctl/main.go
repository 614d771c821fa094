// Command kerndbctl opens a kernel database directory and runs a single
// administrative subcommand against it: init, checkpoint, or stats. It is
// a deliberately thin shell around package kerndb, the same way
// cmd/simpledb/main.go is a thin shell around package db, minus the TCP
// listener and SQL session loop, since this kernel exposes no query
// surface of its own.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/kerndb"
	"github.com/kerndb/kerndb/logx"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("kerndbctl", flag.ContinueOnError)
	dir := fs.String("dir", "kerndb-data", "database directory")
	configPath := fs.String("config", "", "path to an INI config file (optional)")
	jsonOut := fs.Bool("json", false, "print stats as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: kerndbctl [-dir PATH] [-config PATH] <init|checkpoint|stats>")
	}

	cfg, err := dbconfig.Load(*configPath)
	if err != nil {
		return err
	}

	db, err := kerndb.Open(*dir, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logx.Log.WithError(err).Warn("kerndbctl: error closing database")
		}
	}()

	switch fs.Arg(0) {
	case "init":
		logx.Log.WithField("dir", *dir).Info("kerndbctl: database ready")
		return nil
	case "checkpoint":
		if err := db.Checkpoint(); err != nil {
			return err
		}
		logx.Log.Info("kerndbctl: checkpoint complete")
		return nil
	case "stats":
		return printStats(db, *jsonOut)
	default:
		return fmt.Errorf("kerndbctl: unknown subcommand %q", fs.Arg(0))
	}
}

func printStats(db *kerndb.DB, asJSON bool) error {
	snap := db.Stats()
	if !asJSON {
		fmt.Printf("%+v\n", snap)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
