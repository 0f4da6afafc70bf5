package request

import (
	"bytes"
	"encoding/json"
)

// AttributeMap is a map of canonical attribute name to value,
// that preserves the insertion order
type AttributeMap struct {
	keys   []string
	values map[string]string
}

// NewAttributeMap returns empty AttributeMap
func NewAttributeMap() *AttributeMap {
	return &AttributeMap{
		values: map[string]string{},
	}
}

// Set sets the value, an existing key keeps its position
func (m *AttributeMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value
func (m *AttributeMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion order
func (m *AttributeMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of values
func (m *AttributeMap) Len() int {
	return len(m.keys)
}

// ToMap returns a copy as a plain map
func (m *AttributeMap) ToMap() map[string]string {
	res := make(map[string]string, len(m.values))
	for k, v := range m.values {
		res[k] = v
	}
	return res
}

// MarshalJSON returns JSON object with keys in insertion order
func (m *AttributeMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
