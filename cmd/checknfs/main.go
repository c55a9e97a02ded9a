// checknfs is a nagios check probing a remote host for new NFS major
// timeouts. It compares the host's current `/proc/self/mountstats`
// against the text saved by the previous run and goes CRITICAL when any
// operation on any NFS mount timed out since then.
//
// usage: checknfs [options] <hostname> <username>
//
// ssh keys are presumed swapped with the target host for <username>.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xorpaul/go-nagios"
	"go.uber.org/zap"

	"github.com/jessegalley/checknfs"
	"github.com/jessegalley/checknfs/internal/config"
	"github.com/jessegalley/checknfs/internal/history"
	"github.com/jessegalley/checknfs/internal/remote"
)

const version = "0.2.0"

const exitUnknown = 3

func main() {
	var (
		configPath  = flag.String("config", "", "path to an optional yaml config file")
		port        = flag.Int("port", 0, "ssh port on the target host (default 22)")
		identity    = flag.String("identity", "", "ssh private key file, tried after the agent")
		timeoutSec  = flag.Int("timeout", 0, "ssh connect timeout in seconds (default 30)")
		historyDir  = flag.String("history-dir", "", "directory for history files (default system temp dir)")
		debug       = flag.Bool("debug", false, "log debug output to stderr")
		showVersion = flag.Bool("version", false, "show version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("checknfs v%s\n", version)
		os.Exit(0)
	}

	if flag.NArg() != 2 {
		usage()
		os.Exit(exitUnknown)
	}
	host, user := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		nagios.NagiosExit(nagios.NagiosResult{ExitCode: exitUnknown, Text: err.Error()})
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *timeoutSec != 0 {
		cfg.TimeoutSec = *timeoutSec
	}
	if *identity != "" {
		cfg.KeyFile = *identity
	}
	if *historyDir != "" {
		cfg.HistoryDir = *historyDir
	}

	// diagnostics go to stderr so stdout stays a single line for the
	// scheduler
	log := zap.NewNop()
	if *debug {
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "couldn't build debug logger: %v\n", err)
			os.Exit(exitUnknown)
		}
		defer log.Sync()
	}

	fetcher := remote.NewClient(host, user)
	fetcher.Port = cfg.Port
	fetcher.KeyFile = cfg.KeyFile
	fetcher.Timeout = cfg.Timeout()
	fetcher.Log = log

	check := checknfs.New(fetcher, history.NewStore(cfg.HistoryDir, host), log)

	res, err := check.Run()
	if err != nil {
		log.Error("check aborted", zap.Error(err))
		nagios.NagiosExit(nagios.NagiosResult{ExitCode: exitUnknown, Text: err.Error()})
	}

	nagios.NagiosExit(nagios.NagiosResult{
		ExitCode: int(res.Severity),
		Text:     res.Message,
		Perfdata: res.Perfdata,
	})
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options] <hostname> <username>\n\noptions:\n", os.Args[0])
	flag.PrintDefaults()
}
