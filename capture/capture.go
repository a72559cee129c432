package capture

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/jeffssh/pcap-test/decode"
	"github.com/jeffssh/pcap-test/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSnapLen = 65535
	DefaultTimeout = time.Second
)

// Config holds the parameters used to open the capture handle.
type Config struct {
	Interface   string
	SnapLen     int
	Promiscuous bool
	Timeout     time.Duration
}

// DefaultConfig returns a promiscuous, full-snaplen configuration for iface.
func DefaultConfig(iface string) *Config {
	return &Config{
		Interface:   iface,
		SnapLen:     DefaultSnapLen,
		Promiscuous: true,
		Timeout:     DefaultTimeout,
	}
}

// Handle is the part of *pcap.Handle used by the capture loop.
type Handle interface {
	gopacket.PacketDataSource
	Close()
}

// Opener opens a capture handle for cfg.
type Opener func(cfg *Config) (Handle, error)

// OpenLive opens cfg.Interface with libpcap.
func OpenLive(cfg *Config) (Handle, error) {
	handle, err := pcap.OpenLive(cfg.Interface, int32(cfg.SnapLen), cfg.Promiscuous, cfg.Timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "pcap_open_live(%s) return null", cfg.Interface)
	}
	return handle, nil
}

// Stats counts what happened to the packets read by Run.
type Stats struct {
	Received int
	Reported int
	Rejected map[decode.RejectReason]int
}

func newStats() *Stats {
	return &Stats{Rejected: make(map[decode.RejectReason]int)}
}

func (s *Stats) fields() logrus.Fields {
	f := logrus.Fields{
		"received": s.Received,
		"reported": s.Reported,
	}
	for reason, n := range s.Rejected {
		f["rejected_"+strings.ReplaceAll(reason.String(), " ", "_")] = n
	}
	return f
}

// Start opens the configured interface and reports TCP/IPv4 packets until the
// stream ends, a read fails or ctx is canceled. The handle is closed before
// Start returns.
//
// Only an open failure or a failure to write a report is returned as an error.
func Start(ctx context.Context, cfg *Config, open Opener, r *report.Reporter, log logrus.FieldLogger) error {
	handle, err := open(cfg)
	if err != nil {
		return err
	}
	defer handle.Close()

	log.WithFields(logrus.Fields{
		"interface": cfg.Interface,
		"snaplen":   cfg.SnapLen,
		"promisc":   cfg.Promiscuous,
		"timeout":   cfg.Timeout,
	}).Debug("capture started")

	stats, err := Run(ctx, handle, r, log)
	log.WithFields(stats.fields()).Info("capture finished")
	return err
}

// Run reads packets from src one at a time, decoding and reporting each one
// before the next read.
//
// Read timeouts are retried. End of stream and read errors end the loop
// without an error; packets the decoder rejects are skipped.
func Run(ctx context.Context, src gopacket.PacketDataSource, r *report.Reporter, log logrus.FieldLogger) (*Stats, error) {
	stats := newStats()
	for {
		if ctx.Err() != nil {
			log.Debug("capture canceled")
			return stats, nil
		}

		data, _, err := src.ReadPacketData()
		switch {
		case err == pcap.NextErrorTimeoutExpired:
			continue
		case err == io.EOF:
			log.Info("end of capture stream")
			return stats, nil
		case err != nil:
			log.WithError(err).Error("failed to read packet")
			return stats, nil
		}
		stats.Received++

		p, err := decode.Decode(data)
		if err != nil {
			reason, _ := err.(decode.RejectReason)
			stats.Rejected[reason]++
			log.WithFields(logrus.Fields{
				"reason": reason,
				"length": len(data),
			}).Debug("packet skipped")
			continue
		}

		if err := r.Report(p); err != nil {
			return stats, errors.Wrap(err, "failed to write report")
		}
		stats.Reported++
	}
}
