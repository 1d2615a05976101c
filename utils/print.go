package utils

import (
	"fmt"
	"io"

	"github.com/leeforge/thumbkit/json"
)

// PrintJson writes the indented json of v to w.
func PrintJson(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
