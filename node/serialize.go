package node

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/brtdb/brt/internal/fingerprint"
	"github.com/brtdb/brt/pma"
	"github.com/brtdb/brt/wire"
)

// Magic identifies a BRT node block.
var Magic = [4]byte{'b', 'r', 't', 'n'}

// LayoutVersion is the current on-disk node layout version.
const LayoutVersion = 1

// Encode serialises n as the fixed header of spec.md §4.2.4 followed by
// a reversible compressed frame (wire.WriteFrame) carrying either the
// leaf's PMA entries or the nonleaf's pivot table and child buffers.
func (n *Node) Encode(codec wire.Codec) ([]byte, error) {
	payload, err := n.encodePayload()
	if err != nil {
		return nil, err
	}

	h := wire.Header{
		Magic:            Magic,
		NodeSize:         uint32(n.NodeSize),
		Flags:            n.Flags,
		Blocknum:         n.Blocknum,
		LayoutVersion:    n.LayoutVersion,
		Height:           uint32(n.Height),
		Rand4Fingerprint: uint32(n.Rand4Fingerprint),
		LocalFingerprint: uint32(n.LocalFingerprintNow()),
		DiskLSN:          n.DiskLSN,
	}

	var buf bytes.Buffer
	buf.Grow(wire.HeaderSize + len(payload))
	headerBuf := make([]byte, wire.HeaderSize)
	h.Encode(headerBuf)
	buf.Write(headerBuf)

	if _, err := wire.WriteFrame(&buf, codec, payload); err != nil {
		return nil, fmt.Errorf("node: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a node previously written by Encode, given the
// comparator policy needed to reconstruct the leaf's PMA ordering.
func Decode(buf []byte, policy *Policy, codec wire.Codec) (*Node, error) {
	if len(buf) < wire.HeaderSize {
		return nil, fmt.Errorf("node: buffer too short for header: %d bytes", len(buf))
	}
	h, err := wire.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("node: %w: bad magic", errBadFormat)
	}

	payload, err := wire.ReadFrame(bytes.NewReader(buf[wire.HeaderSize:]), codec)
	if err != nil {
		return nil, fmt.Errorf("node: %w: %v", errBadFormat, err)
	}

	n := &Node{
		Blocknum:         h.Blocknum,
		Height:           int(h.Height),
		NodeSize:         int(h.NodeSize),
		Flags:            h.Flags,
		LayoutVersion:    h.LayoutVersion,
		Rand4Fingerprint: fingerprint.Salt(h.Rand4Fingerprint),
		DiskLSN:          h.DiskLSN,
	}
	if err := n.decodePayload(payload, policy); err != nil {
		return nil, err
	}
	if uint32(n.LocalFingerprintNow()) != h.LocalFingerprint {
		return nil, fmt.Errorf("node: %w: fingerprint mismatch", errBadFormat)
	}
	return n, nil
}

func (n *Node) encodePayload() ([]byte, error) {
	var buf bytes.Buffer
	if n.IsLeaf() {
		encodeLeafPayload(&buf, &n.Leaf.PMA)
		return buf.Bytes(), nil
	}
	encodeNonleafPayload(&buf, n.Nonleaf)
	return buf.Bytes(), nil
}

func encodeLeafPayload(buf *bytes.Buffer, p *pma.PMA) {
	putUvarint(buf, uint64(p.Len()))
	p.Items(func(_ int, pair *pma.Pair) bool {
		putUvarint(buf, uint64(len(pair.Key)))
		buf.Write(pair.Key)
		putUvarint(buf, uint64(len(pair.Val)))
		buf.Write(pair.Val)
		return true
	})
}

func encodeNonleafPayload(buf *bytes.Buffer, nl *NonleafData) {
	putUvarint(buf, uint64(len(nl.Children)))
	for _, p := range nl.Pivots {
		putUvarint(buf, uint64(len(p)))
		buf.Write(p)
	}
	for _, c := range nl.Children {
		var fixed [16]byte
		binary.BigEndian.PutUint64(fixed[0:8], uint64(c.Blocknum))
		binary.BigEndian.PutUint32(fixed[8:12], uint32(c.SubtreeFingerprint))
		binary.BigEndian.PutUint32(fixed[12:16], uint32(c.Buffer.Bytes()))
		buf.Write(fixed[:])

		putUvarint(buf, uint64(c.Buffer.Len()))
		c.Buffer.Items(func(m Message) bool {
			buf.WriteByte(byte(m.Type))
			putUvarint(buf, uint64(len(m.XIDs)))
			for _, id := range m.XIDs {
				var idBuf [8]byte
				binary.BigEndian.PutUint64(idBuf[:], id)
				buf.Write(idBuf[:])
			}
			putUvarint(buf, uint64(len(m.Key)))
			buf.Write(m.Key)
			putUvarint(buf, uint64(len(m.Val)))
			buf.Write(m.Val)
			return true
		})
	}
}

func (n *Node) decodePayload(payload []byte, policy *Policy) error {
	if n.IsLeaf() {
		return n.decodeLeafPayload(payload, policy)
	}
	return n.decodeNonleafPayload(payload)
}

func (n *Node) decodeLeafPayload(payload []byte, policy *Policy) error {
	n.Leaf = &LeafData{}
	n.Leaf.PMA.Init(policy.Cmp.Cmp, valCmpOrNil(policy), policy.DupsAllowed, policy.DupsSorted, nil)

	r := bytes.NewReader(payload)
	count, err := getUvarint(r)
	if err != nil {
		return fmt.Errorf("node: %w: leaf count: %v", errBadFormat, err)
	}
	for i := uint64(0); i < count; i++ {
		key, err := getBytes(r)
		if err != nil {
			return fmt.Errorf("node: %w: leaf key: %v", errBadFormat, err)
		}
		val, err := getBytes(r)
		if err != nil {
			return fmt.Errorf("node: %w: leaf val: %v", errBadFormat, err)
		}
		if policy.DupsAllowed {
			n.Leaf.PMA.AddDuplicate(key, val)
		} else {
			n.Leaf.PMA.SetUnique(key, val)
		}
	}
	return nil
}

func (n *Node) decodeNonleafPayload(payload []byte) error {
	r := bytes.NewReader(payload)
	nChildren, err := getUvarint(r)
	if err != nil {
		return fmt.Errorf("node: %w: child count: %v", errBadFormat, err)
	}

	pivots := make([][]byte, 0, nChildren-1)
	for i := uint64(0); i+1 < nChildren; i++ {
		p, err := getBytes(r)
		if err != nil {
			return fmt.Errorf("node: %w: pivot: %v", errBadFormat, err)
		}
		pivots = append(pivots, p)
	}

	children := make([]*ChildInfo, 0, nChildren)
	for i := uint64(0); i < nChildren; i++ {
		var fixed [16]byte
		if _, err := readFull(r, fixed[:]); err != nil {
			return fmt.Errorf("node: %w: child fixed fields: %v", errBadFormat, err)
		}
		c := &ChildInfo{
			Blocknum:           int64(binary.BigEndian.Uint64(fixed[0:8])),
			SubtreeFingerprint: fingerprint.Sum(binary.BigEndian.Uint32(fixed[8:12])),
		}

		msgCount, err := getUvarint(r)
		if err != nil {
			return fmt.Errorf("node: %w: message count: %v", errBadFormat, err)
		}
		for j := uint64(0); j < msgCount; j++ {
			var typeByte [1]byte
			if _, err := readFull(r, typeByte[:]); err != nil {
				return fmt.Errorf("node: %w: message type: %v", errBadFormat, err)
			}
			xidDepth, err := getUvarint(r)
			if err != nil {
				return fmt.Errorf("node: %w: xid depth: %v", errBadFormat, err)
			}
			xids := make(XIDs, xidDepth)
			for k := range xids {
				var idBuf [8]byte
				if _, err := readFull(r, idBuf[:]); err != nil {
					return fmt.Errorf("node: %w: xid: %v", errBadFormat, err)
				}
				xids[k] = binary.BigEndian.Uint64(idBuf[:])
			}
			key, err := getBytes(r)
			if err != nil {
				return fmt.Errorf("node: %w: message key: %v", errBadFormat, err)
			}
			val, err := getBytes(r)
			if err != nil {
				return fmt.Errorf("node: %w: message val: %v", errBadFormat, err)
			}
			c.Buffer.Enqueue(Message{Type: Type(typeByte[0]), XIDs: xids, Key: key, Val: val})
		}
		children = append(children, c)
	}

	n.Nonleaf = &NonleafData{Pivots: pivots, Children: children}
	return nil
}
