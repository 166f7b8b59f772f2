package octo

import (
	"bytes"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"octocart/internal/services"
)

var errMissing = errors.New("required field is missing")

// Cart is the document carried by an Octo cartridge.
type Cart struct {
	Program string  `json:"program"`
	Options Options `json:"options"`
}

// UnmarshalJSON requires both the program text and the options object.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("cart must be a JSON object")
	}

	f := fields{raw: raw}
	var out Cart
	f.string("program", &out.Program, true)
	if value, ok := f.lookup("options", true); ok {
		if err := json.Unmarshal(value, &out.Options); err != nil {
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				err = &FieldError{Field: "options", Err: err}
			}
			f.errs = append(f.errs, err)
		}
	}
	if err := f.err(); err != nil {
		return err
	}
	*c = out
	return nil
}

// Parse decodes a payload body into a Cart. Bytes outside ASCII are read as
// Latin-1, one character per byte.
func Parse(body []byte) (*Cart, error) {
	text, err := Text(body)
	if err != nil {
		return nil, services.Wrap(services.ErrPayload, "octo", "decode text", "", err)
	}
	return ParseString(text)
}

// ParseString decodes payload text into a Cart.
func ParseString(text string) (*Cart, error) {
	var cart Cart
	if err := json.Unmarshal([]byte(text), &cart); err != nil {
		return nil, services.Wrap(services.ErrPayload, "octo", "parse", "", err)
	}
	return &cart, nil
}

// Text converts a payload body to a string without losing any byte.
func Text(body []byte) (string, error) {
	if isASCII(body) {
		return string(body), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MarshalIndent renders the cart as indented JSON.
func (c *Cart) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the cart in its compact payload form.
func (c *Cart) String() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return ""
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
