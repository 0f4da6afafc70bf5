package cli

import (
	"bytes"
	"testing"

	"github.com/effective-security/certreq/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	var cl struct {
		Version string `json:"version"`
		Tags    []string
	}
	cl.Version = "1.2.3"
	cl.Tags = []string{"a&b"}

	w := bytes.NewBuffer([]byte{})
	err := WriteJSON(w, cl)
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"version\": \"1.2.3\",\n\t\"Tags\": [\n\t\t\"a&b\"\n\t]\n}\n", w.String())

	attrs := request.NewAttributeMap()
	attrs.Set("countryName", "SE")
	attrs.Set("commonName", "Alice")

	w.Reset()
	err = WriteJSON(w, attrs)
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"countryName\": \"SE\",\n\t\"commonName\": \"Alice\"\n}\n", w.String())

	w.Reset()
	err = WriteJSON(w, func() {})
	assert.EqualError(t, err, "failed to encode: json: unsupported type: func()")
	assert.Empty(t, w.String())
}
