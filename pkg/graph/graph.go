package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a model to JSON bytes.
func MarshalGraph(g *multigraph.Multigraph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a model to a JSON file.
func WriteGraphFile(g *multigraph.Multigraph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// WriteGraph writes a model as indented JSON.
func WriteGraph(g *multigraph.Multigraph, w io.Writer) error {
	return encode(w, FromModel(g))
}

// ReadGraphFile reads a JSON file and returns both the decoded data and the
// model built from it.
func ReadGraphFile(path string) (Graph, *multigraph.Multigraph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Graph{}, nil, herrors.Wrap(herrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return Graph{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes a JSON graph and builds its model.
func ReadGraph(r io.Reader) (Graph, *multigraph.Multigraph, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Graph{}, nil, herrors.Wrap(herrors.ErrCodeInvalidFormat, err, "decode graph")
	}
	g, err := ToModel(data)
	if err != nil {
		return Graph{}, nil, err
	}
	return data, g, nil
}

// =============================================================================
// Position Serialization API
// =============================================================================

// MarshalPositions encodes the positions of every node in g.
func MarshalPositions(g *multigraph.Multigraph) ([]byte, error) {
	return json.Marshal(ExtractPositions(g))
}

// UnmarshalPositions decodes positions written by MarshalPositions.
func UnmarshalPositions(data []byte) (Positions, error) {
	var p Positions
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeInvalidFormat, err, "decode positions")
	}
	return p, nil
}

// WritePositions writes the positions of g as indented JSON.
func WritePositions(g *multigraph.Multigraph, w io.Writer) error {
	return encode(w, ExtractPositions(g))
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
