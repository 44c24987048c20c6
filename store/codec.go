package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"
)

// NormalizeCodec maps a configured compression name to its filename
// suffix. An empty name means no compression.
func NormalizeCodec(name string) (string, error) {
	switch name {
	case "":
		return "", nil
	case "gzip", "gz":
		return "gz", nil
	case "bzip2", "bz2":
		return "bz2", nil
	case "xz":
		return "xz", nil
	default:
		return "", fmt.Errorf("compression %q is not supported", name)
	}
}

// Encode marshals a payload with the configured file extension codec.
func Encode(extension string, value any) ([]byte, error) {
	switch extension {
	case "json":
		return json.MarshalIndent(value, "", "  ")
	case "yaml":
		return yaml.Marshal(value)
	default:
		return nil, fmt.Errorf("file extension %q is not supported", extension)
	}
}

// Decode unmarshals a payload with the configured file extension codec.
func Decode(extension string, raw []byte, value any) error {
	switch extension {
	case "json":
		return json.Unmarshal(raw, value)
	case "yaml":
		return yaml.Unmarshal(raw, value)
	default:
		return fmt.Errorf("file extension %q is not supported", extension)
	}
}

// Compress wraps raw bytes with the named codec suffix ("gz", "bz2",
// "xz"); an empty codec passes the bytes through.
func Compress(codec string, raw []byte) ([]byte, error) {
	if codec == "" {
		return raw, nil
	}
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch codec {
	case "gz":
		w = gzip.NewWriter(&buf)
	case "bz2":
		w, err = bzip2.NewWriter(&buf, nil)
	case "xz":
		w, err = xz.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("compression %q is not supported", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s writer: %w", codec, err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress %s: %w", codec, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", codec, err)
	}
	return buf.Bytes(), nil
}

// Decompress unwraps bytes written by Compress.
func Decompress(codec string, raw []byte) ([]byte, error) {
	if codec == "" {
		return raw, nil
	}
	var r io.Reader
	var err error
	switch codec {
	case "gz":
		r, err = gzip.NewReader(bytes.NewReader(raw))
	case "bz2":
		r, err = bzip2.NewReader(bytes.NewReader(raw), nil)
	case "xz":
		r, err = xz.NewReader(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("compression %q is not supported", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s reader: %w", codec, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", codec, err)
	}
	return out, nil
}
