package event

import "encoding/json"

// MarshalJSON flattens the event back into the wire shape of spec §6:
// {"type", "timestamp", "_source", ...fields}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = string(e.Type)
	out["timestamp"] = e.Timestamp.Unix()
	out["_source"] = e.Source
	return json.Marshal(out)
}
