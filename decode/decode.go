package decode

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/jeffssh/pcap-test/internal/wire"
)

const (
	// EthernetHeaderLen is the size of an untagged Ethernet II header.
	EthernetHeaderLen = 14
	// MinIPv4HeaderLen is the size of an IPv4 header without options.
	MinIPv4HeaderLen = 20
	// TCPFixedLen covers the TCP fields up to and including the data offset.
	TCPFixedLen = 14
	// MinTCPHeaderLen is the size of a TCP header without options.
	MinTCPHeaderLen = 20
	// MinFrameLen is the shortest buffer whose fixed header fields can all be read.
	MinFrameLen = EthernetHeaderLen + MinIPv4HeaderLen + TCPFixedLen
	// MaxPreview caps the number of payload bytes kept in a Packet.
	MaxPreview = 16
)

// RejectReason explains why a buffer was not decoded into a Packet.
//
// Rejections are a filtering result, not a fault: non-matching traffic is
// expected on any live interface.
type RejectReason int

const (
	Truncated RejectReason = iota + 1
	NotIPv4
	NotTCP
	MalformedIPHeader
	MalformedTCPHeader
)

var reasonNames = map[RejectReason]string{
	Truncated:          "truncated",
	NotIPv4:            "not ipv4",
	NotTCP:             "not tcp",
	MalformedIPHeader:  "malformed ip header",
	MalformedTCPHeader: "malformed tcp header",
}

func (r RejectReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

func (r RejectReason) Error() string {
	return "packet rejected: " + r.String()
}

// Ethernet is the Ethernet II header of a frame.
type Ethernet struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType layers.EthernetType
}

// IPv4 holds the fixed fields of an IPv4 header. Options are not parsed.
type IPv4 struct {
	Version    uint8
	IHL        uint8
	TOS        uint8
	Length     uint16
	ID         uint16
	Flags      layers.IPv4Flag
	FragOffset uint16
	TTL        uint8
	Protocol   layers.IPProtocol
	Checksum   uint16
	SrcIP      net.IP
	DstIP      net.IP
}

// HeaderLen is the IPv4 header size in bytes.
func (ip *IPv4) HeaderLen() int { return int(ip.IHL) * 4 }

// TCP holds the TCP fields up to the data offset.
type TCP struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8
}

// HeaderLen is the TCP header size in bytes, options included.
func (tcp *TCP) HeaderLen() int { return int(tcp.DataOffset) * 4 }

// Packet is a decoded TCP/IPv4 frame.
//
// The address and preview slices point into the buffer passed to Decode, so a
// Packet is only valid for as long as that buffer is.
type Packet struct {
	Ethernet Ethernet
	IPv4     IPv4
	TCP      TCP

	// PayloadLength is the payload size claimed by the IPv4 total length.
	PayloadLength int
	// Preview is the start of the payload, at most MaxPreview bytes and never
	// more than what was captured.
	Preview []byte
}

// PayloadOffset is where the TCP payload starts in the frame.
func (p *Packet) PayloadOffset() int {
	return EthernetHeaderLen + p.IPv4.HeaderLen() + p.TCP.HeaderLen()
}

// Decode parses an Ethernet frame carrying TCP over IPv4.
//
// Any returned error is a RejectReason. Decode does not modify or retain data.
func Decode(data []byte) (*Packet, error) {
	p := &Packet{}

	if !decodeEthernet(data, &p.Ethernet) {
		return nil, Truncated
	}
	if p.Ethernet.EtherType != layers.EthernetTypeIPv4 {
		return nil, NotIPv4
	}
	if len(data) < MinFrameLen {
		return nil, Truncated
	}

	if err := decodeIPv4(data[EthernetHeaderLen:], &p.IPv4); err != nil {
		return nil, err
	}
	if p.IPv4.Protocol != layers.IPProtocolTCP {
		return nil, NotTCP
	}

	tcpOff := EthernetHeaderLen + p.IPv4.HeaderLen()
	if err := decodeTCP(data[tcpOff:], &p.TCP); err != nil {
		return nil, err
	}

	payloadOff := p.PayloadOffset()
	p.PayloadLength = int(p.IPv4.Length) - p.IPv4.HeaderLen() - p.TCP.HeaderLen()
	if p.PayloadLength < 0 {
		p.PayloadLength = 0
	}

	n := p.PayloadLength
	if n > MaxPreview {
		n = MaxPreview
	}
	if avail := len(data) - payloadOff; n > avail {
		n = avail
	}
	p.Preview, _ = wire.Window(data, payloadOff, n)

	return p, nil
}

func decodeEthernet(b []byte, eth *Ethernet) bool {
	hdr, ok := wire.Window(b, 0, EthernetHeaderLen)
	if !ok {
		return false
	}
	eth.DstMAC = net.HardwareAddr(hdr[0:6])
	eth.SrcMAC = net.HardwareAddr(hdr[6:12])
	typ, _ := wire.Uint16(hdr, 12)
	eth.EtherType = layers.EthernetType(typ)
	return true
}

// decodeIPv4 reads the header at the start of b, which runs to the end of the
// captured frame.
func decodeIPv4(b []byte, ip *IPv4) error {
	vihl, ok := wire.Uint8(b, 0)
	if !ok {
		return Truncated
	}
	ip.Version = wire.HighNibble(vihl)
	ip.IHL = wire.LowNibble(vihl)
	if ip.IHL < 5 {
		return MalformedIPHeader
	}
	hdr, ok := wire.Window(b, 0, ip.HeaderLen())
	if !ok {
		return MalformedIPHeader
	}

	ip.TOS = hdr[1]
	ip.Length, _ = wire.Uint16(hdr, 2)
	ip.ID, _ = wire.Uint16(hdr, 4)
	ff, _ := wire.Uint16(hdr, 6)
	ip.Flags = layers.IPv4Flag(ff >> 13)
	ip.FragOffset = ff & 0x1fff
	ip.TTL = hdr[8]
	ip.Protocol = layers.IPProtocol(hdr[9])
	ip.Checksum, _ = wire.Uint16(hdr, 10)
	ip.SrcIP = net.IP(hdr[12:16])
	ip.DstIP = net.IP(hdr[16:20])

	if int(ip.Length) < ip.HeaderLen() {
		return MalformedIPHeader
	}
	return nil
}

func decodeTCP(b []byte, tcp *TCP) error {
	fixed, ok := wire.Window(b, 0, TCPFixedLen)
	if !ok {
		return MalformedTCPHeader
	}
	tcp.SrcPort, _ = wire.Uint16(fixed, 0)
	tcp.DstPort, _ = wire.Uint16(fixed, 2)
	tcp.Seq, _ = wire.Uint32(fixed, 4)
	tcp.Ack, _ = wire.Uint32(fixed, 8)
	tcp.DataOffset = wire.HighNibble(fixed[12])

	if tcp.DataOffset < 5 {
		return MalformedTCPHeader
	}
	if _, ok := wire.Window(b, 0, tcp.HeaderLen()); !ok {
		return MalformedTCPHeader
	}
	return nil
}
