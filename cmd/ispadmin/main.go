package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/liimonx/ispadmin/api"
	"github.com/liimonx/ispadmin/console"
	"github.com/liimonx/ispadmin/credstore"
	"github.com/liimonx/ispadmin/gateway"
	"github.com/liimonx/ispadmin/internal/config"
	"github.com/liimonx/ispadmin/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running console: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "config.Load")
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return errors.Wrap(err, "newLogger")
	}

	displayAppname("ISP Admin")

	store := credstore.New(cfg.CredentialPath())
	gw := gateway.New(cfg.BaseURL,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithLogger(logger.With().Str("component", "gateway").Logger()),
	)
	manager := session.NewManager(gw, store,
		session.WithLogger(logger.With().Str("component", "session").Logger()),
	)
	client := api.New(cfg.BaseURL, manager,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The notice watches its own signal channel, not ctx: the deferred stop
	// cancels ctx on a clean quit too, and that must stay silent.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	notifyInterrupted(interrupts, func() {
		// Restore default signal handling so a second interrupt kills the
		// process even while the prompt is blocked on a read.
		stop()
		signal.Stop(interrupts)
	}, os.Stderr)

	if err := manager.Initialize(ctx); err != nil {
		logger.Warn().Err(err).Msg("session restore failed")
	}
	if snap := manager.Snapshot(); snap.Authenticated() && snap.User != nil {
		fmt.Printf("resumed session for %s\n", snap.User.Username)
	}

	repl := console.New(manager, client)
	if err := repl.Run(ctx); err != nil {
		return errors.Wrap(err, "repl.Run")
	}
	return nil
}

// notifyInterrupted tells the operator how to get out after the first
// interrupt, since a prompt blocked on a read cannot be unblocked from here.
// It stays silent when the channel closes or delivers nothing.
func notifyInterrupted(interrupts <-chan os.Signal, restore func(), out io.Writer) {
	go func() {
		if _, ok := <-interrupts; !ok {
			return
		}
		restore()
		fmt.Fprintln(out, "\ninterrupted, press enter or interrupt again to exit")
	}()
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, errors.Wrapf(err, "zerolog.ParseLevel %q", level)
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
