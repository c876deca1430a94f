package packet

import (
	"io"

	"github.com/openpgp-go/corepgp/errors"
)

// newPacket constructs a zero-valued packet for tag, or nil if tag is
// not one this module recognizes.
func newPacket(tag Tag) Packet {
	switch tag {
	case PacketTypePublicKey, PacketTypePublicSubkey:
		return &PublicKey{IsSubkey: tag == PacketTypePublicSubkey}
	case PacketTypeSecretKey, PacketTypeSecretSubkey:
		return &SecretKey{PublicKey: PublicKey{IsSubkey: tag == PacketTypeSecretSubkey}}
	case PacketTypeOnePassSignature:
		return &OnePassSignature{}
	case PacketTypeEncryptedKey:
		return &EncryptedKey{}
	default:
		if IsStreamingCapable(tag) {
			return &OpaqueDataPacket{PacketTag: tag}
		}
		return nil
	}
}

// OpaqueDataPacket stands in for a streaming-capable bulk-data packet
// (Compressed, Symmetrically Encrypted, Literal Data, SEIPDv1, AEAD
// Encrypted): none of those data formats belong to this module's data
// model, so their body is never parsed here, only handed off whole via
// PacketList.Stream().
type OpaqueDataPacket struct {
	PacketTag Tag
}

func (p *OpaqueDataPacket) Tag() Tag {
	return p.PacketTag
}

// parse is a no-op: ReadPacketList hands the body reader to the caller
// unconsumed rather than materializing it here.
func (p *OpaqueDataPacket) parse(r io.Reader) error {
	return nil
}

func (p *OpaqueDataPacket) Serialize(w io.Writer) error {
	return errors.UnsupportedError("opaque data packet body was never materialized for re-serialization")
}

// PacketList is an ordered sequence of typed packets, plus an optional
// stream reader for the body of a trailing streaming-capable packet.
type PacketList struct {
	packets []Packet
	stream  io.Reader // unread body of the streaming-capable packet, drained by the caller
}

// Packets returns the list's in-memory materialized packets, in wire
// order.
func (pl *PacketList) Packets() []Packet {
	return pl.packets
}

// Stream returns the unread body of the streaming-capable packet the
// read stopped at; nil otherwise. Packets framed after that packet are
// not reachable through it: they stay unread in the original reader.
func (pl *PacketList) Stream() io.Reader {
	return pl.stream
}

// Push appends a packet.
func (pl *PacketList) Push(p Packet) {
	pl.packets = append(pl.packets, p)
}

// FilterByTag returns a new PacketList containing only packets whose
// tag is in tags, order preserved.
func (pl *PacketList) FilterByTag(tags ...Tag) *PacketList {
	want := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	out := &PacketList{}
	for _, p := range pl.packets {
		if want[p.Tag()] {
			out.packets = append(out.packets, p)
		}
	}
	return out
}

// FindPacket returns the first packet with the given tag, or nil.
func (pl *PacketList) FindPacket(tag Tag) Packet {
	for _, p := range pl.packets {
		if p.Tag() == tag {
			return p
		}
	}
	return nil
}

// IndexOfTag returns the indices of every packet matching one of tags.
func (pl *PacketList) IndexOfTag(tags ...Tag) []int {
	want := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var idx []int
	for i, p := range pl.packets {
		if want[p.Tag()] {
			idx = append(idx, i)
		}
	}
	return idx
}

// Concat appends other's packets to pl.
func (pl *PacketList) Concat(other *PacketList) {
	pl.packets = append(pl.packets, other.packets...)
}

// ReadPacketList frames packets from r, dispatching each to its typed
// packet via allowedPackets, and materializes everything up to and
// including the first streaming-capable packet. That packet's body is
// left in the returned list's Stream() for lazy consumption; packets
// framed after it are neither parsed nor exposed, and stay unread in r.
func ReadPacketList(r io.Reader, allowedPackets map[Tag]bool, config *Config) (*PacketList, error) {
	pl := &PacketList{}

	for {
		tag, length, isPartial, err := readHeader(r)
		if err == io.EOF {
			return pl, nil
		}
		if err != nil {
			return pl, err
		}

		if !allowedPackets[tag] {
			if config.IsTolerant() && !IsStreamingCapable(tag) {
				if err := skipBody(r, length, isPartial); err != nil {
					return pl, err
				}
				config.debugf("packet_list: skipping disallowed tag %d", tag)
				continue
			}
			return pl, errors.DisallowedPacket(int(tag))
		}

		body := io.Reader(newPartialLengthReader(r, length, isPartial))

		if IsStreamingCapable(tag) {
			// Hand the packet's body stream off to the caller instead of
			// materializing it, and stop reading: any packets framed
			// after it are left unread in r. newPacket
			// always returns a non-nil packet for a streaming-capable tag
			// (falling back to OpaqueDataPacket), so there is no
			// tolerant-skip branch to take here.
			p := newPacket(tag)
			if err := p.parse(body); err != nil {
				return pl, err
			}
			pl.packets = append(pl.packets, p)
			pl.stream = body
			return pl, nil
		}

		p := newPacket(tag)
		if p == nil {
			if config.IsTolerant() {
				if _, err := io.Copy(io.Discard, body); err != nil {
					return pl, err
				}
				config.debugf("packet_list: skipping unrecognized tag %d", tag)
				continue
			}
			return pl, errors.DisallowedPacket(int(tag))
		}

		if err := p.parse(body); err != nil {
			if config.IsTolerant() {
				if _, derr := io.Copy(io.Discard, body); derr != nil {
					return pl, derr
				}
				config.debugf("packet_list: skipping malformed packet (tag %d): %v", tag, err)
				continue
			}
			return pl, err
		}
		pl.packets = append(pl.packets, p)
	}
}

// skipBody discards a non-streaming-capable packet's body without
// parsing it, used by the tolerant disallowed/unrecognized-tag path.
func skipBody(r io.Reader, length int64, isPartial bool) error {
	_, err := io.Copy(io.Discard, newPartialLengthReader(r, length, isPartial))
	return err
}

// WritePacketList serializes every packet in pl to w in order.
func WritePacketList(w io.Writer, pl *PacketList) error {
	for _, p := range pl.packets {
		if err := p.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteStreamingPacket serializes tag's header and chunks body (an
// unbounded io.Reader) into partial-length segments; every chunk but
// the last is a power-of-two length in [2, 2^30].
func WriteStreamingPacket(w io.Writer, tag Tag, body io.Reader) error {
	if _, err := w.Write([]byte{0x80 | 0x40 | byte(tag)}); err != nil {
		return err
	}
	pw := newPartialLengthWriter(w)
	if _, err := io.Copy(pw, body); err != nil {
		return err
	}
	return pw.Close()
}
