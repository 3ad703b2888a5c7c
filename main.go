/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/azer/engine"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/testbed"
)

func main() {
	configPath := flag.String("config", "azer.toml", "path to the engine configuration")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", *configPath)
		cfg, err = engine.DefaultConfig(), nil
	}
	if err != nil {
		panic(err)
	}

	app, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}
	app.PushLayer(testbed.NewTestLayer(app.Input(), app.Metrics()))

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		app.RequestClose()
	}()

	// run engine
	if err := app.Run(); err != nil {
		panic(err)
	}
}
