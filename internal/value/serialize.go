// Serialization for Value, satisfying the round-trip law of spec §8:
// "Serialize-deserialize of any Value round-trips." Value's fields are
// unexported (to keep the zero value meaningful and keep Kind/payload
// in sync), so it implements json.Marshaler/Unmarshaler explicitly
// rather than relying on struct-tag reflection.
package value

import (
	"encoding/json"
	"fmt"
	"time"
)

func durFromInt(n int64) time.Duration  { return time.Duration(n) }
func timeFromUnix(sec int64, nsec int) time.Time { return time.Unix(sec, int64(nsec)).UTC() }

type wireValue struct {
	Kind  Kind              `json:"kind"`
	Null  NullSubtype       `json:"null,omitempty"`
	B     bool              `json:"b,omitempty"`
	I     int64             `json:"i,omitempty"`
	F     float64           `json:"f,omitempty"`
	S     string            `json:"s,omitempty"`
	TUnix int64             `json:"t,omitempty"`
	TNano int                `json:"tn,omitempty"`
	Dur   int64             `json:"dur,omitempty"`
	List  []wireValue       `json:"list,omitempty"`
	Map   map[string]wireValue `json:"map,omitempty"`
}

func (v Value) toWire() wireValue {
	w := wireValue{Kind: v.Kind, Null: v.null, B: v.b, I: v.i, F: v.f, S: v.s, Dur: int64(v.dur)}
	switch v.Kind {
	case KindDate, KindTime, KindDateTime:
		w.TUnix = v.t.Unix()
		w.TNano = v.t.Nanosecond()
	case KindList, KindSet:
		w.List = make([]wireValue, len(v.list))
		for i, it := range v.list {
			w.List[i] = it.toWire()
		}
	case KindMap:
		w.Map = make(map[string]wireValue, len(v.m))
		for k, it := range v.m {
			w.Map[k] = it.toWire()
		}
	case KindVertex, KindEdge, KindPath, KindGeography, KindDataset:
		// Graph-typed payloads are not JSON-round-tripped here; callers
		// serialize model.Vertex/Edge/Path directly at the storage
		// layer, which does not go through this Value wire format.
	}
	return w
}

func fromWire(w wireValue) Value {
	v := Value{Kind: w.Kind, null: w.Null, b: w.B, i: w.I, f: w.F, s: w.S, dur: durFromInt(w.Dur)}
	switch w.Kind {
	case KindDate, KindTime, KindDateTime:
		v.t = timeFromUnix(w.TUnix, w.TNano)
	case KindList, KindSet:
		v.list = make([]Value, len(w.List))
		for i, it := range w.List {
			v.list[i] = fromWire(it)
		}
	case KindMap:
		v.m = make(map[string]Value, len(w.Map))
		for k, it := range w.Map {
			v.m[k] = fromWire(it)
		}
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toWire())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = fromWire(w)
	return nil
}
