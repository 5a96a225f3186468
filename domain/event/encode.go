package event

import (
	"errors"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers of the external tool's Event message.
const (
	fieldWallTime    = 1
	fieldStep        = 2
	fieldFileVersion = 3
	fieldGraphDef    = 4
	fieldSummary     = 5
	fieldSessionLog  = 6
)

var ErrBadRecord = errors.New("event: malformed record")

// Encode serializes the envelope. Payload bytes are embedded as-is under
// the field matching their kind.
func (e Event) Encode() []byte {
	b := protowire.AppendTag(nil, fieldWallTime, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(e.WallTime))
	if e.HasStep {
		b = protowire.AppendTag(b, fieldStep, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Step))
	}
	if num, ok := fieldFor(e.Payload.Kind); ok {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload.Data)
	}
	return b
}

// Decode parses an encoded envelope. Unknown fields are skipped so that
// records written by newer producers still decode.
func Decode(b []byte) (Event, error) {
	var e Event
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Event{}, ErrBadRecord
		}
		b = b[n:]
		switch {
		case num == fieldWallTime && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Event{}, ErrBadRecord
			}
			e.WallTime = math.Float64frombits(v)
			b = b[n:]
		case num == fieldStep && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Event{}, ErrBadRecord
			}
			e.Step = int64(v)
			e.HasStep = true
			b = b[n:]
		case typ == protowire.BytesType && kindFor(num) != 0:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Event{}, ErrBadRecord
			}
			e.Payload = Payload{Kind: kindFor(num), Data: append([]byte(nil), v...)}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Event{}, ErrBadRecord
			}
			b = b[n:]
		}
	}
	if e.WallTime == 0 && e.Payload.Kind == 0 {
		return Event{}, ErrBadRecord
	}
	return e, nil
}

func fieldFor(k Kind) (protowire.Number, bool) {
	switch k {
	case KindFileVersion:
		return fieldFileVersion, true
	case KindGraphDef:
		return fieldGraphDef, true
	case KindSummary:
		return fieldSummary, true
	case KindSessionLog:
		return fieldSessionLog, true
	default:
		return 0, false
	}
}

func kindFor(num protowire.Number) Kind {
	switch num {
	case fieldFileVersion:
		return KindFileVersion
	case fieldGraphDef:
		return KindGraphDef
	case fieldSummary:
		return KindSummary
	case fieldSessionLog:
		return KindSessionLog
	default:
		return 0
	}
}
