package main

import (
	"os"

	"github.com/jeffssh/pcap-test/capture"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, capture.OpenLive))
}
