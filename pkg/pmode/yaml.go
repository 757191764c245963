package pmode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads a stream of YAML documents, one P-Mode per document
func Decode(r io.Reader) ([]*PMode, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var pmodes []*PMode
	for {
		var pm PMode
		err := dec.Decode(&pm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding pmode #%d: %w", len(pmodes)+1, err)
		}
		if pm.ID == "" {
			return nil, fmt.Errorf("decoding pmode #%d: %w", len(pmodes)+1, ErrInvalidID)
		}
		pmodes = append(pmodes, &pm)
	}
	return pmodes, nil
}

// Encode writes the P-Modes as a YAML document stream
func Encode(w io.Writer, pmodes ...*PMode) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, pm := range pmodes {
		if err := enc.Encode(pm); err != nil {
			return fmt.Errorf("encoding pmode %s: %w", pm.ID, err)
		}
	}
	return enc.Close()
}

// Unmarshal decodes P-Modes from a byte slice
func Unmarshal(data []byte) ([]*PMode, error) {
	return Decode(bytes.NewReader(data))
}

// LoadFile reads P-Modes from a YAML file
func LoadFile(path string) ([]*PMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pmode file: %w", err)
	}
	defer f.Close()

	pmodes, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pmodes, nil
}
