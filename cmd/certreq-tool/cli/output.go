package cli

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
)

// WriteJSON prints value to out as indented JSON, followed by a new line
func WriteJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return errors.WithMessage(err, "failed to encode")
	}
	return nil
}
