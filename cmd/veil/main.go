// Package main provides the Veil command line interface: a thin driver over
// the profile/proxy session manager for creating, inspecting, launching, and
// deleting browsing identities.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/veil/pkg/app"
	"github.com/entrhq/veil/pkg/config"
	"github.com/entrhq/veil/pkg/session"
)

const version = "0.1.0"

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (optional)")
		dataDir     = flag.String("data-dir", "", "Override the data directory")
		headless    = flag.Bool("headless", false, "Launch browsers without a visible window")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("Veil v%s\n", version)
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("configuration error: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *headless {
		cfg.Headless = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()

	svc, err := app.New(cfg, session.NewPlaywrightEngine())
	if err != nil {
		fatalf("startup error: %v", err)
	}
	defer svc.Shutdown(context.Background())

	if err := run(ctx, svc, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatalf("%v", err)
	}
}

func run(ctx context.Context, svc *app.Service, command string, args []string) error {
	switch command {
	case "profiles":
		return listProfiles(ctx, svc)
	case "create-profile":
		return createProfile(ctx, svc, args)
	case "edit-profile":
		return editProfile(ctx, svc, args)
	case "note":
		return updateNote(ctx, svc, args)
	case "delete-profile":
		return deleteProfile(ctx, svc, args)
	case "launch":
		return launchProfile(ctx, svc, args)
	case "proxies":
		return listProxies(ctx, svc)
	case "add-proxy":
		return addProxy(ctx, svc, args)
	case "delete-proxy":
		return deleteProxy(ctx, svc, args)
	case "test-proxy":
		return testProxy(ctx, svc, args)
	case "check-proxy":
		return checkProxy(ctx, svc, args)
	case "country":
		return resolveCountry(ctx, svc, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Veil v%s - persistent browsing identity manager

Usage: veil [flags] <command> [args]

Profile commands:
  profiles                      List all profiles
  create-profile [flags]        Create a profile (-name, -useragent, -notes, -proxy-id, -proxy)
  edit-profile <id> [flags]     Replace a profile's fields
  note <id> <text>              Update a profile's notes
  delete-profile <id>           Delete a profile and its storage
  launch <id>                   Launch a profile and wait for the browser to close

Proxy commands:
  proxies                       List all proxy records
  add-proxy <uri>               Create a proxy from scheme://[user:pass@]host:port
  delete-proxy <id>             Delete a proxy record
  test-proxy <uri>              Health-check a proxy URI
  check-proxy <id>              Health-check a stored proxy and persist the status
  country <id>                  Resolve and persist a stored proxy's country

Flags:
`, version)
	flag.PrintDefaults()
}

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "veil: "+format+"\n", v...)
	os.Exit(1)
}
