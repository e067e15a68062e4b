package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"go.senan.xyz/trackdex/track"
)

var ErrUnknownFormat = errors.New("unknown format")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export writes the collection to w for use outside trackdex.
func Export(w io.Writer, tracks []track.Track, format Format) error {
	if tracks == nil {
		tracks = []track.Track{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tracks)
	case FormatYAML:
		b, err := yaml.Marshal(tracks)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Import reads a collection previously written by Export.
func Import(r io.Reader, format Format) ([]track.Track, error) {
	var tracks []track.Track
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&tracks); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if err := yaml.Unmarshal(b, &tracks); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return tracks, nil
}
