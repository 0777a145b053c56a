package toolcalls

import (
	"encoding/json"
	"sort"
	"strings"
)

// canonicalizeForSignature recursively sorts object keys so that two
// structurally identical argument sets always serialize to the same bytes
// regardless of the order a model emitted them in.
func canonicalizeForSignature(value any) any {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]any, len(v))
		for _, k := range keys {
			ordered[k] = canonicalizeForSignature(v[k])
		}
		return orderedMap{keys: keys, values: ordered}
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = canonicalizeForSignature(item)
		}
		return out
	default:
		return v
	}
}

// orderedMap serializes to JSON with its keys in the fixed order it was
// built with, so canonicalizeForSignature's sort actually survives
// encoding/json's otherwise-unspecified map key order.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		valJSON, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(valJSON)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// ToolCallSignature computes the (lowercased name, canonical-JSON args)
// pair used to deduplicate tool calls the model repeats verbatim across
// turns. Arguments that fail to serialize fall back to "{}" rather than
// dropping the call from dedup entirely.
func ToolCallSignature(name string, arguments any) (string, string) {
	canonical := canonicalizeForSignature(arguments)
	argsJSON, err := json.Marshal(canonical)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(name)), "{}"
	}
	return strings.ToLower(strings.TrimSpace(name)), string(argsJSON)
}
