package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Metadata describes a file at backup time. Every field is optional so
// entries written by older or newer versions still decode; keys this
// version does not know are preserved in Extra.
type Metadata struct {
	Perm  *uint32 // see file.EncodePerm
	Size  *int64
	CTime *int64 // Unix nanoseconds
	MTime *int64 // Unix nanoseconds
	UID   *uint32
	GID   *uint32
	Stamp *int64 // backup time, Unix nanoseconds
	Extra map[string]any
}

// Wire keys of the known metadata fields.
const (
	metaPerm  = "p"
	metaSize  = "s"
	metaCTime = "c"
	metaMTime = "m"
	metaUID   = "o"
	metaGID   = "g"
	metaStamp = "t"
)

// Entry is one backed-up state of one path.
type Entry struct {
	Path     string
	Version  int
	Metadata Metadata
	Blocks   []string
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: cbor encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: cbor decoder initialization failed: " + err.Error())
	}
}

// Fields returns the set fields keyed by their wire names, Extra included.
func (m Metadata) Fields() map[string]any {
	out := make(map[string]any, 7+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	put := func(k string, v any, ok bool) {
		if ok {
			out[k] = v
		}
	}
	if m.Perm != nil {
		put(metaPerm, *m.Perm, true)
	}
	if m.Size != nil {
		put(metaSize, *m.Size, true)
	}
	if m.CTime != nil {
		put(metaCTime, *m.CTime, true)
	}
	if m.MTime != nil {
		put(metaMTime, *m.MTime, true)
	}
	if m.UID != nil {
		put(metaUID, *m.UID, true)
	}
	if m.GID != nil {
		put(metaGID, *m.GID, true)
	}
	if m.Stamp != nil {
		put(metaStamp, *m.Stamp, true)
	}
	return out
}

// Diff returns the sorted wire keys set in m whose value differs in other
// (including keys other lacks).
func (m Metadata) Diff(other Metadata) []string {
	mine, theirs := m.Fields(), other.Fields()
	var keys []string
	for k, v := range mine {
		ov, ok := theirs[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(ov) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Field returns the printable value of a wire key, or "<unset>".
func (m Metadata) Field(key string) string {
	if v, ok := m.Fields()[key]; ok {
		return fmt.Sprint(v)
	}
	return "<unset>"
}

// ModTime returns the recorded modification time.
func (m Metadata) ModTime() (time.Time, bool) { return unixNano(m.MTime) }

// StoredAt returns the recorded backup time.
func (m Metadata) StoredAt() (time.Time, bool) { return unixNano(m.Stamp) }

func unixNano(v *int64) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	return time.Unix(0, *v), true
}

// MarshalCBOR encodes m as a map keyed by the short wire names.
func (m Metadata) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(m.Fields())
}

// UnmarshalCBOR decodes the wire map, routing unknown keys into Extra.
func (m *Metadata) UnmarshalCBOR(data []byte) error {
	var raw map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	*m = Metadata{}
	for k, v := range raw {
		var err error
		switch k {
		case metaPerm:
			m.Perm, err = decodeField[uint32](v)
		case metaSize:
			m.Size, err = decodeField[int64](v)
		case metaCTime:
			m.CTime, err = decodeField[int64](v)
		case metaMTime:
			m.MTime, err = decodeField[int64](v)
		case metaUID:
			m.UID, err = decodeField[uint32](v)
		case metaGID:
			m.GID, err = decodeField[uint32](v)
		case metaStamp:
			m.Stamp, err = decodeField[int64](v)
		default:
			var x any
			err = decMode.Unmarshal(v, &x)
			if err == nil {
				if m.Extra == nil {
					m.Extra = make(map[string]any)
				}
				m.Extra[k] = x
			}
		}
		if err != nil {
			return fmt.Errorf("decode metadata field %q: %w", k, err)
		}
	}
	return nil
}

func decodeField[T any](raw cbor.RawMessage) (*T, error) {
	var v T
	if err := decMode.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type entryWire struct {
	_        struct{} `cbor:",toarray"`
	Metadata Metadata
	Blocks   []string
}

// EncodeEntry serializes the (metadata, blocks) pair stored under an entry key.
func EncodeEntry(md Metadata, blocks []string) ([]byte, error) {
	if blocks == nil {
		blocks = []string{}
	}
	data, err := encMode.Marshal(entryWire{Metadata: md, Blocks: blocks})
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return data, nil
}

// DecodeEntry is the inverse of EncodeEntry.
func DecodeEntry(data []byte) (Metadata, []string, error) {
	var w entryWire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return Metadata{}, nil, fmt.Errorf("decode entry: %w", err)
	}
	if w.Blocks == nil {
		w.Blocks = []string{}
	}
	return w.Metadata, w.Blocks, nil
}

// Uint32 and Int64 build optional metadata values.
func Uint32(v uint32) *uint32 { return &v }
func Int64(v int64) *int64    { return &v }
