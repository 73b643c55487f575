// sigmad is an interactive demonstration of a sigma protocol: it proves
// knowledge of the opening of a commitment u = g^alpha * h^beta mod q to
// any number of observers watching the transcript over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/IKycTI/SigmaProtocol/common/log"
	"github.com/IKycTI/SigmaProtocol/internal/arith"
	"github.com/IKycTI/SigmaProtocol/internal/config"
	"github.com/IKycTI/SigmaProtocol/internal/core"
	"github.com/IKycTI/SigmaProtocol/internal/group"
	dhttp "github.com/IKycTI/SigmaProtocol/internal/http"
)

// Set through -ldflags.
var (
	gitCommit = "none"
	buildDate = "unknown"
)

const version = "0.2.0"

func banner() {
	fmt.Printf("sigmad %s (date %v, commit %v)\n", version, buildDate, gitCommit)
	fmt.Println("WARNING: demonstration parameters only, NOT cryptographically sized.")
}

var configFlag = &cli.StringFlag{
	Name:     "config",
	Aliases:  []string{"c"},
	Usage:    "Path to the JSON server configuration.",
	Required: true,
	EnvVars:  []string{"SIGMAD_CONFIG"},
}

var groupFlag = &cli.StringFlag{
	Name:    "group",
	Usage:   "Path to a TOML group parameters file. When absent, fresh parameters are generated at startup.",
	EnvVars: []string{"SIGMAD_GROUP"},
}

var bitsFlag = &cli.IntFlag{
	Name:    "bits",
	Usage:   "Bit length of the generated group modulus.",
	Value:   arith.DefaultPrimeBits,
	EnvVars: []string{"SIGMAD_BITS"},
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Usage:   "If set, verbosity is at the debug level.",
	EnvVars: []string{"SIGMAD_VERBOSE"},
}

var jsonFlag = &cli.BoolFlag{
	Name:    "json",
	Usage:   "Set the logs output to JSON format.",
	EnvVars: []string{"SIGMAD_JSON"},
}

func main() {
	banner()
	app := &cli.App{
		Name:    "sigmad",
		Version: version,
		Usage:   "Interactive sigma-protocol demonstration server.",
		Flags:   []cli.Flag{configFlag, groupFlag, bitsFlag, verboseFlag, jsonFlag},
		Action:  run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sigmad: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := log.InfoLevel
	if c.Bool(verboseFlag.Name) {
		level = log.DebugLevel
	}
	l := log.New(nil, level, c.Bool(jsonFlag.Name)).Named("sigmad")

	conf, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	l.Debugw("configuration loaded", "name", conf.Name, "peer", conf.SecondServer.HostPort())

	params, err := loadOrGenerateParams(c, l)
	if err != nil {
		return err
	}
	l.Infow("group parameters ready", "q", params.Q, "g", params.G, "h", params.H)

	daemon, err := core.New(core.Config{Log: l, Params: params})
	if err != nil {
		return err
	}

	addr := conf.Address.HostPort()
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           dhttp.New(daemon, l),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		l.Infow("listening", "name", conf.Name, "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		l.Infow("shutting down")
		daemon.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadOrGenerateParams(c *cli.Context, l log.Logger) (*group.Params, error) {
	if path := c.String(groupFlag.Name); path != "" {
		return group.Load(path)
	}
	cfg := arith.DefaultPrimeConfig()
	cfg.Bits = c.Int(bitsFlag.Name)
	l.Infow("generating group parameters", "bits", cfg.Bits)
	return group.Generate(nil, cfg)
}
