package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeffssh/pcap-test/capture"
	"github.com/jeffssh/pcap-test/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errUsage = errors.New("usage")

// errFailed marks an error that has already been logged.
var errFailed = errors.New("failed")

func usage(w io.Writer) {
	fmt.Fprintln(w, "syntax: pcap-test <interface>")
	fmt.Fprintln(w, "sample: pcap-test wlan0")
}

type options struct {
	snaplen int
	timeout time.Duration
	promisc bool
	color   bool
	verbose bool
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func newRootCmd(stdout, stderr io.Writer, open capture.Opener) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "pcap-test <interface>",
		Short: "Print Ethernet, IPv4 and TCP headers of live traffic",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(stderr, opts.verbose)

			cfg := capture.DefaultConfig(args[0])
			cfg.SnapLen = opts.snaplen
			cfg.Timeout = opts.timeout
			cfg.Promiscuous = opts.promisc

			var ropts []report.Option
			if opts.color {
				ropts = append(ropts, report.WithColor())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := capture.Start(ctx, cfg, open, report.New(stdout, ropts...), log); err != nil {
				log.WithField("interface", cfg.Interface).Error(err)
				return errFailed
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(*cobra.Command, error) error { return errUsage })

	flags := cmd.Flags()
	flags.IntVarP(&opts.snaplen, "snaplen", "s", capture.DefaultSnapLen, "Snapshot length for packet capture")
	flags.DurationVarP(&opts.timeout, "timeout", "t", capture.DefaultTimeout, "Read timeout before polling again")
	flags.BoolVar(&opts.promisc, "promisc", true, "Put the interface into promiscuous mode")
	flags.BoolVar(&opts.color, "color", false, "Highlight reports for a terminal")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log skipped packets and capture settings")
	return cmd
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer, open capture.Opener) int {
	if args == nil {
		// cobra reads os.Args when given nil
		args = []string{}
	}
	cmd := newRootCmd(stdout, stderr, open)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, errUsage) {
			usage(stdout)
		}
		return 1
	}
	return 0
}
