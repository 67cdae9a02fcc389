package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecarrara/oci-registry-client/cmd/subcmd"
	"github.com/ecarrara/oci-registry-client/impl/config"
	"github.com/ecarrara/oci-registry-client/impl/globals"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run gets the configuration and runs the sub-command from the command line. An
// interrupt or SIGTERM cancels the sub-command, as does the pull timeout.
func run() error {
	command, image, err := getCfg()
	if err != nil {
		return err
	}
	if command == "" {
		// the parser displayed help
		return nil
	}
	if err := globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := config.GetPullTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
		defer cancel()
	}

	log.Debugf("running command %s %s", command, image)
	switch command {
	case "manifest":
		return subcmd.Manifest(ctx, image, os.Stdout)
	case "list":
		return subcmd.List(ctx, image, os.Stdout)
	case "pull":
		return subcmd.Pull(ctx, image, os.Stdout)
	case "version":
		fmt.Printf("%s version: %s\n", globals.ProgramName, globals.Version)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}
