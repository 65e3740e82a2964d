package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// encode writes v in the requested format. YAML goes through the JSON form
// so field names match the HTTP API.
func encode(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	if format != formatYAML {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("converting output to yaml: %w", err)
	}
	plain(&node)

	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(&node); err != nil {
		return err
	}
	return e.Close()
}

// plain drops the flow and quoting styles carried over from JSON
func plain(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plain(c)
	}
}

// readSignals loads a signals file: either the three layers at the top
// level or wrapped under a "signals" key
func readSignals(path string) (signals.Input, error) {
	var in signals.Input

	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("reading signals file: %w", err)
	}

	var wrapped struct {
		Signals *signals.Input `json:"signals"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return in, fmt.Errorf("parsing signals file %s: %w", path, err)
	}
	if wrapped.Signals != nil {
		return *wrapped.Signals, nil
	}

	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parsing signals file %s: %w", path, err)
	}
	return in, nil
}
