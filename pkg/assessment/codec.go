package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/exploopio/cvss/pkg/compress"
	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/options"
)

// Format is a report file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a config or flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", sdkerrors.E("assessment.ParseFormat", sdkerrors.ErrUnsupportedFormat, fmt.Sprintf("format %q", s))
	}
}

// FormatFromPath derives encoding and compression from a file name such as
// "report.yaml.zst". Unknown extensions encode as JSON.
func FormatFromPath(path string) (Format, compress.Algorithm) {
	algorithm, base := compress.FromPath(path)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return FormatYAML, algorithm
	default:
		return FormatJSON, algorithm
	}
}

// Encode serializes v and compresses the result as configured.
func Encode(v any, cfg *options.CodecConfig) ([]byte, error) {
	const op = "assessment.Encode"

	format := Format(cfg.Format)
	if format == "" {
		format = FormatJSON
	}

	var data []byte
	var err error
	switch format {
	case FormatJSON:
		if cfg.Indent {
			data, err = json.MarshalIndent(v, "", "  ")
		} else {
			data, err = json.Marshal(v)
		}
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	default:
		return nil, sdkerrors.E(op, sdkerrors.ErrUnsupportedFormat, fmt.Sprintf("format %q", format))
	}
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, op, err)
	}

	c, err := compress.For(cfg.Compression)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, op, err)
	}
	return c.Compress(data)
}

// Decode decompresses data when it carries a zstd or gzip header and
// unmarshals it into v.
func Decode(data []byte, format Format, v any) error {
	const op = "assessment.Decode"

	raw, err := compress.Decompress(data)
	if err != nil {
		return sdkerrors.E(sdkerrors.KindInvalidInput, op, err)
	}

	switch format {
	case FormatJSON:
		err = json.Unmarshal(raw, v)
	case FormatYAML:
		err = yaml.Unmarshal(raw, v)
	default:
		return sdkerrors.E(op, sdkerrors.ErrUnsupportedFormat, fmt.Sprintf("format %q", format))
	}
	if err != nil {
		kind := sdkerrors.GetKind(err)
		if kind == sdkerrors.KindUnknown {
			kind = sdkerrors.KindInvalidInput
		}
		return sdkerrors.E(kind, op, err, "decode "+string(format))
	}
	return nil
}

// ReadVulnerabilities reads records from r. The document may be a bare list
// of records or a report whose vulnerabilities are taken.
func ReadVulnerabilities(r io.Reader, format Format) ([]Vulnerability, error) {
	const op = "assessment.ReadVulnerabilities"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInternal, op, err)
	}
	data, err = compress.Decompress(data)
	if err != nil {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, op, err)
	}

	var list []Vulnerability
	if isList(data, format) {
		if err := Decode(data, format, &list); err != nil {
			return nil, sdkerrors.Wrap(err, op)
		}
		return list, nil
	}

	var report Report
	if err := Decode(data, format, &report); err != nil {
		return nil, sdkerrors.Wrap(err, op)
	}
	return report.Vulnerabilities, nil
}

// isList reports whether the top-level document is a sequence.
func isList(data []byte, format Format) bool {
	if format == FormatJSON {
		return bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}

// LoadVulnerabilities reads records from a file, detecting the format from
// its name.
func LoadVulnerabilities(path string) ([]Vulnerability, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, _ := FormatFromPath(path)
	return ReadVulnerabilities(f, format)
}

// LoadReport reads a report file written by SaveReport.
func LoadReport(path string) (*Report, error) {
	const op = "assessment.LoadReport"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(op, path, err)
	}

	format, _ := FormatFromPath(path)
	var report Report
	if err := Decode(data, format, &report); err != nil {
		return nil, sdkerrors.Wrap(err, op)
	}
	return &report, nil
}

// WriteReport encodes r to w.
func WriteReport(w io.Writer, r *Report, opts ...options.CodecOption) error {
	cfg := options.DefaultCodecConfig()
	options.ApplyCodecOptions(cfg, opts...)

	data, err := Encode(r, cfg)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return sdkerrors.E(sdkerrors.KindInternal, "assessment.WriteReport", err)
	}
	return nil
}

// SaveReport writes r to path. Format and compression follow the file name
// unless overridden by options.
func SaveReport(path string, r *Report, opts ...options.CodecOption) error {
	const op = "assessment.SaveReport"

	format, algorithm := FormatFromPath(path)
	cfg := options.DefaultCodecConfig()
	cfg.Format = string(format)
	cfg.Compression = algorithm
	options.ApplyCodecOptions(cfg, opts...)

	data, err := Encode(r, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fileError(op, path, err)
	}
	return nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileError("assessment.open", path, err)
	}
	return f, nil
}

func fileError(op, path string, err error) error {
	if os.IsNotExist(err) {
		return sdkerrors.E(sdkerrors.KindNotFound, op, err, path)
	}
	return sdkerrors.E(sdkerrors.KindInternal, op, err, path)
}
