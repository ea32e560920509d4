//go:build windows

// warphost is built with -buildmode=c-shared and injected into the target
// process. On load it starts two workers: one installs the four time-query
// intercepts, the other serves the speed-command pipe. The host process never
// calls into us except through the patched imports.
package main

import "C"

import (
	"log"
	"sync"

	"github.com/caarlos0/env/v11"

	"github.com/kestrad/procwarp/command"
	"github.com/kestrad/procwarp/timewarp"
)

type config struct {
	PipeName string `env:"PROCWARP_PIPE"`
}

var host struct {
	mu     sync.Mutex
	engine *timewarp.Engine
	hooks  *timewarp.HookSet
	server *command.Server
}

func init() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Printf("warphost: config: %v", err)
	}
	host.engine = timewarp.NewEngine(timewarp.SystemClocks())
	go attach()
	go listen(cfg.PipeName)
}

func attach() {
	host.engine.Attach()
	hooks, err := timewarp.InstallHooks(host.engine)
	if err != nil {
		log.Printf("warphost: install hooks: %v", err)
		return
	}
	host.mu.Lock()
	host.hooks = hooks
	host.mu.Unlock()
}

func listen(pipeName string) {
	listener, err := command.ListenPipe(pipeName)
	if err != nil {
		log.Printf("warphost: listen: %v", err)
		return
	}
	server := command.NewServer(listener, host.engine)
	host.mu.Lock()
	host.server = server
	host.mu.Unlock()
	if err := server.Serve(); err != nil {
		log.Printf("warphost: serve: %v", err)
	}
}

// Detach removes the intercepts and closes the command listener. Exported for
// controllers that want a clean teardown before the target exits.
//
//export Detach
func Detach() {
	host.mu.Lock()
	defer host.mu.Unlock()
	if host.hooks != nil {
		host.hooks.Remove()
		host.hooks = nil
	}
	if host.server != nil {
		host.server.Close()
		host.server = nil
	}
	host.engine.Detach()
}

func main() {}
