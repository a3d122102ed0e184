// Package main runs the marketplace settlement CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	marketcmd "github.com/nftrack/nftrack/internal/cmd/market"
	"github.com/nftrack/nftrack/internal/platform/config"
)

func main() {
	cfg, args, err := marketcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[MARKET] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := marketcmd.Run(ctx, cfg, args, os.Stdout); err != nil {
		config.Exitf("market command: %v", err)
	}
}
