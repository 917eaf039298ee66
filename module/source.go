package module

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4"
)

// Source is a client module as produced by the build: a script name and its
// code, already decompressed.
type Source struct {
	Name string
	Code []byte
}

//go:embed default_client.js
var defaultClient []byte

// Default returns the demo client built into the binary.
func Default() Source {
	return Source{Name: "default_client.js", Code: defaultClient}
}

// FromFile reads a module bundle from disk. Files ending in .lz4 are
// decompressed.
func FromFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".lz4") {
		data, err = Decompress(data)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %s: %w", ErrLoad, name, err)
		}
		name = strings.TrimSuffix(name, ".lz4")
	}
	return Source{Name: name, Code: data}, nil
}

// Compress packs module code into an lz4 bundle.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decompress(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
