package gcpmetadata

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeBody(t *testing.T) {
	t.Run("for a JSON object", func(t *testing.T) {
		value := decodeBody([]byte(`{"name": "my-instance", "id": 42}`))
		expect := map[string]any{
			"name": "my-instance",
			"id":   json.Number("42"),
		}
		if diff := cmp.Diff(expect, value); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("preserves integers beyond float64 precision", func(t *testing.T) {
		value := decodeBody([]byte(`9007199254740993`))
		number, good := value.(json.Number)
		if !good {
			t.Fatal("expected a json.Number")
		}
		if number.String() != "9007199254740993" {
			t.Fatal("the digits were not preserved", number.String())
		}
	})

	t.Run("for plain text", func(t *testing.T) {
		value := decodeBody([]byte("my-host.example"))
		if diff := cmp.Diff("my-host.example", value); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("for text with a JSON-looking prefix", func(t *testing.T) {
		// "314-abc" starts like a number but it is not JSON
		value := decodeBody([]byte("314-abc"))
		if diff := cmp.Diff("314-abc", value); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("for a quoted JSON string", func(t *testing.T) {
		value := decodeBody([]byte(`"my-host.example"`))
		if diff := cmp.Diff("my-host.example", value); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestValueToString(t *testing.T) {
	t.Run("for a string", func(t *testing.T) {
		if valueToString("my-project") != "my-project" {
			t.Fatal("unexpected value")
		}
	})

	t.Run("for a number", func(t *testing.T) {
		if valueToString(json.Number("123456789012345678901")) != "123456789012345678901" {
			t.Fatal("unexpected value")
		}
	})

	t.Run("for a structured value", func(t *testing.T) {
		value := valueToString(map[string]any{"name": "my-instance"})
		if value != `{"name":"my-instance"}` {
			t.Fatal("unexpected value", value)
		}
	})
}
