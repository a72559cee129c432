// Package report renders decoded packets as human-readable text blocks.
package report

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/jeffssh/pcap-test/decode"
)

const divider = "==================================================================="

// Reporter writes one block per packet to an output sink.
type Reporter struct {
	w     io.Writer
	color bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithColor highlights each block for a 16-colour terminal.
func WithColor() Option {
	return func(r *Reporter) { r.color = true }
}

// New creates a Reporter writing to w.
func New(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report writes the block for p.
func (r *Reporter) Report(p *decode.Packet) error {
	text := Format(p)
	if !r.color {
		_, err := io.WriteString(r.w, text)
		return err
	}

	b := new(bytes.Buffer)
	if err := quick.Highlight(b, text, "yaml", "terminal16", "base16-snazzy"); err != nil {
		return err
	}
	// Reset so the next block starts from the terminal's default colours.
	b.WriteString("\x1b[0m")
	_, err := r.w.Write(b.Bytes())
	return err
}

// Format renders p as the source section, destination section and a hex
// preview of the payload.
func Format(p *decode.Packet) string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s\n\n", divider)

	fmt.Fprintln(buf, "<source Info>")
	fmt.Fprintf(buf, "source mac address : %s\n", p.Ethernet.SrcMAC)
	fmt.Fprintf(buf, "source ip address : %s\n", p.IPv4.SrcIP)
	fmt.Fprintf(buf, "source port : %d\n", p.TCP.SrcPort)
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "<destination Info>")
	fmt.Fprintf(buf, "destination mac address : %s\n", p.Ethernet.DstMAC)
	fmt.Fprintf(buf, "destination ip address : %s\n", p.IPv4.DstIP)
	fmt.Fprintf(buf, "destination port : %d\n", p.TCP.DstPort)
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "<data field>")
	fmt.Fprintf(buf, "data_length : %d\n", len(p.Preview))
	fmt.Fprintln(buf, hexPairs(p.Preview))
	return buf.String()
}

// hexPairs renders each byte as two lowercase hex digits followed by a space.
func hexPairs(b []byte) string {
	var sb strings.Builder
	for i := range b {
		sb.WriteString(hex.EncodeToString(b[i : i+1]))
		sb.WriteByte(' ')
	}
	return sb.String()
}
