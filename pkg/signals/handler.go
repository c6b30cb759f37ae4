package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

var (
	signalHandlers      []func()
	signalHandlersMutex sync.Mutex
	signalHandlersOnce  sync.Once
)

// RegisterGracefulTerminationHandler registers fn to run when the process
// receives SIGINT or SIGTERM. The first signal runs all registered handlers
// and lets the program wind down on its own; a second signal exits
// immediately.
func RegisterGracefulTerminationHandler(fn func()) {
	signalHandlersOnce.Do(install)
	signalHandlersMutex.Lock()
	defer signalHandlersMutex.Unlock()
	signalHandlers = append(signalHandlers, fn)
}

func install() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go signalHandler(c)
}

func signalHandler(c chan os.Signal) {
	<-c
	log.Warn().Msg("Interrupt received, aborting the run. Progress so far is saved.")

	signalHandlersMutex.Lock()
	handlers := make([]func(), len(signalHandlers))
	copy(handlers, signalHandlers)
	signalHandlersMutex.Unlock()

	for _, fn := range handlers {
		fn()
	}

	<-c
	os.Exit(1)
}
