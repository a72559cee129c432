package report

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/jeffssh/pcap-test/decode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket(preview []byte) *decode.Packet {
	return &decode.Packet{
		Ethernet: decode.Ethernet{
			SrcMAC: net.HardwareAddr{0x00, 0x1b, 0x21, 0xaa, 0xbb, 0xcc},
			DstMAC: net.HardwareAddr{0xf0, 0x9f, 0xc2, 0x11, 0x22, 0x33},
		},
		IPv4: decode.IPv4{
			SrcIP: net.IP{10, 0, 0, 1},
			DstIP: net.IP{192, 168, 100, 254},
		},
		TCP: decode.TCP{
			SrcPort: 80,
			DstPort: 443,
		},
		PayloadLength: len(preview),
		Preview:       preview,
	}
}

func TestFormat(t *testing.T) {
	p := testPacket([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x0a})

	want := strings.Join([]string{
		"===================================================================",
		"",
		"<source Info>",
		"source mac address : 00:1b:21:aa:bb:cc",
		"source ip address : 10.0.0.1",
		"source port : 80",
		"",
		"<destination Info>",
		"destination mac address : f0:9f:c2:11:22:33",
		"destination ip address : 192.168.100.254",
		"destination port : 443",
		"",
		"<data field>",
		"data_length : 6",
		"de ad be ef 00 0a ",
		"",
	}, "\n")

	assert.Equal(t, want, Format(p))
}

func TestFormat_DataFieldMatchesCaptureTool(t *testing.T) {
	out := Format(testPacket([]byte{0xde, 0xad}))
	assert.True(t, strings.HasSuffix(out, "<data field>\ndata_length : 2\nde ad \n"), out)
}

func TestFormat_EmptyPayload(t *testing.T) {
	out := Format(testPacket(nil))
	assert.True(t, strings.HasSuffix(out, "<data field>\ndata_length : 0\n\n"), out)
}

func TestFormat_ReportsPreviewLength(t *testing.T) {
	p := testPacket(bytes.Repeat([]byte{0x41}, decode.MaxPreview))
	p.PayloadLength = 1400

	out := Format(p)
	assert.Contains(t, out, "data_length : 16\n")
	assert.Contains(t, out, strings.Repeat("41 ", 16)+"\n")
}

func TestReporter_Report(t *testing.T) {
	buf := new(bytes.Buffer)
	r := New(buf)

	p1 := testPacket([]byte{0x01})
	p2 := testPacket([]byte{0x02})
	p2.TCP.SrcPort = 8080

	require.NoError(t, r.Report(p1))
	require.NoError(t, r.Report(p2))

	assert.Equal(t, Format(p1)+Format(p2), buf.String())
	assert.Less(t, strings.Index(buf.String(), "source port : 80\n"), strings.Index(buf.String(), "source port : 8080\n"))
}

func TestReporter_Color(t *testing.T) {
	buf := new(bytes.Buffer)
	r := New(buf, WithColor())

	require.NoError(t, r.Report(testPacket([]byte{0xff})))
	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.True(t, strings.HasSuffix(out, "\x1b[0m"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestReporter_WriteError(t *testing.T) {
	r := New(failingWriter{})
	assert.EqualError(t, r.Report(testPacket(nil)), "broken pipe")
}
