package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/jsonx"
)

// PayloadKind tags the shape held by a Payload
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadRecord PayloadKind = "record"
)

// Payload is the caller-supplied content of a block. Exactly one of Text or
// Record is meaningful, selected by Kind.
type Payload struct {
	Kind   PayloadKind
	Text   string
	Record map[string]interface{}
}

// Text builds a text payload
func Text(s string) Payload {
	return Payload{Kind: PayloadText, Text: s}
}

// Record builds a structured payload. Values are checked when the block is
// hashed; see normalizeValue for the accepted kinds.
func Record(fields map[string]interface{}) Payload {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Payload{Kind: PayloadRecord, Record: fields}
}

// String renders text payloads verbatim and records as canonical JSON
func (p Payload) String() string {
	if p.Kind == PayloadText {
		return p.Text
	}
	data, err := p.canonical()
	if err != nil {
		return fmt.Sprintf("<invalid record: %v>", err)
	}
	return string(data)
}

// Equal compares payloads by their canonical encoding
func (p Payload) Equal(other Payload) bool {
	a, errA := p.canonical()
	b, errB := other.canonical()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

// Clone returns a deep copy so callers cannot reach into stored records
func (p Payload) Clone() Payload {
	if p.Kind != PayloadRecord {
		return p
	}
	return Payload{Kind: PayloadRecord, Record: cloneValue(p.Record).(map[string]interface{})}
}

// MarshalJSON encodes a text payload as a JSON string and a record as an object
func (p Payload) MarshalJSON() ([]byte, error) {
	return p.canonical()
}

// UnmarshalJSON accepts a JSON string (text) or object (record)
func (p *Payload) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := jsonx.UnmarshalNumber(data, &v); err != nil {
		return ledgererr.NewSerializationError(fmt.Sprintf("payload: %v", err))
	}
	switch val := v.(type) {
	case string:
		*p = Text(val)
	case map[string]interface{}:
		*p = Record(val)
	default:
		return ledgererr.NewSerializationError(fmt.Sprintf("payload must be a string or an object, got %T", v))
	}
	return nil
}

func (p Payload) canonical() ([]byte, error) {
	switch p.Kind {
	case PayloadText:
		return jsonx.MarshalCanonical(p.Text)
	case PayloadRecord:
		normalized, err := normalizeValue(p.Record, "payload")
		if err != nil {
			return nil, err
		}
		return jsonx.MarshalCanonical(normalized)
	default:
		return nil, ledgererr.NewSerializationError(fmt.Sprintf("unknown payload kind %q", p.Kind))
	}
}

// normalizeValue maps every accepted value onto the JSON value set with a
// single textual form per value. Anything else is a SerializationError.
func normalizeValue(v interface{}, path string) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case bool:
		return val, nil
	case json.Number:
		return normalizeNumber(string(val), path)
	case jsoniter.Number:
		return normalizeNumber(string(val), path)
	case int:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int8:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int16:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(val, 10)), nil
	case uint:
		return json.Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint8:
		return json.Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint16:
		return json.Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint32:
		return json.Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(val, 10)), nil
	case float32:
		return normalizeFloat(float64(val), path)
	case float64:
		return normalizeFloat(val, path)
	case time.Time:
		return FormatTimestamp(val), nil
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			n, err := normalizeValue(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]string:
		out := make(map[string]interface{}, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for _, k := range sortedKeys(val) {
			n, err := normalizeValue(val[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, ledgererr.NewSerializationError(fmt.Sprintf("%s: non-string map key %v (%T)", path, k, k))
			}
			n, err := normalizeValue(item, path+"."+key)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	default:
		return nil, ledgererr.NewSerializationError(fmt.Sprintf("%s: unsupported value of type %T", path, v))
	}
}

func normalizeNumber(s, path string) (interface{}, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return json.Number(strconv.FormatInt(i, 10)), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return json.Number(strconv.FormatUint(u, 10)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, ledgererr.NewSerializationError(fmt.Sprintf("%s: invalid number %q", path, s))
	}
	return normalizeFloat(f, path)
}

func normalizeFloat(f float64, path string) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ledgererr.NewSerializationError(fmt.Sprintf("%s: non-finite number %v", path, f))
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return json.Number(strconv.FormatInt(int64(f), 10)), nil
	}
	return json.Number(strings.ToLower(strconv.FormatFloat(f, 'g', -1, 64))), nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
