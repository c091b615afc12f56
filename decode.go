package gcpmetadata

import (
	"bytes"
	"encoding/json"
)

// decodeBody decodes a metadata response body.
//
// JSON bodies are decoded with json.Decoder.UseNumber so that
// integers exceeding the safe precision of float64 keep their exact
// textual digits as [json.Number] values. A body that is not valid
// JSON is returned as raw text: many metadata properties are plain
// strings and a non-JSON body is not an error.
func decodeBody(body []byte) any {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return string(body)
	}
	// trailing garbage means the body was not JSON after all
	if decoder.More() {
		return string(body)
	}
	return value
}

// valueToString renders a decoded metadata value as a string. Most
// metadata properties are plain text already; numbers keep their
// exact digits through [json.Number].
func valueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
