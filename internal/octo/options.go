package octo

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FontStyle names the built-in hex font an interpreter should load.
type FontStyle string

const (
	FontOcto      FontStyle = "octo"
	FontVIP       FontStyle = "vip"
	FontDream6800 FontStyle = "dream6800"
	FontETI660    FontStyle = "eti660"
	FontSCHIP     FontStyle = "schip"
	FontFish      FontStyle = "fish"
)

var fontStyles = []FontStyle{FontOcto, FontVIP, FontDream6800, FontETI660, FontSCHIP, FontFish}

// TouchInputMode selects how touch input maps onto the CHIP-8 keypad.
type TouchInputMode string

const (
	TouchNone      TouchInputMode = "none"
	TouchSwipe     TouchInputMode = "swipe"
	TouchSeg16     TouchInputMode = "seg16"
	TouchSeg16Fill TouchInputMode = "seg16fill"
	TouchGamepad   TouchInputMode = "gamepad"
	TouchVIP       TouchInputMode = "vip"
)

var touchModes = []TouchInputMode{TouchNone, TouchSwipe, TouchSeg16, TouchSeg16Fill, TouchGamepad, TouchVIP}

// ScreenRotation is the display rotation in degrees.
type ScreenRotation int

var rotations = []ScreenRotation{0, 90, 180, 270}

// Color is a 24-bit color written as "#RRGGBB".
type Color struct {
	R, G, B uint8
}

// ParseColor reads a "#RRGGBB" hex triple.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("color %q is not a #RRGGBB triple", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q is not a #RRGGBB triple", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// String renders the color as "#RRGGBB".
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Options is the Octo runtime configuration bundled with a cart.
type Options struct {
	TickRate       int            `json:"tickrate" toml:"tickrate"`
	MaxSize        int            `json:"maxSize" toml:"max_size"`
	ScreenRotation ScreenRotation `json:"screenRotation" toml:"screen_rotation"`
	FontStyle      FontStyle      `json:"fontStyle" toml:"font_style"`
	TouchInputMode TouchInputMode `json:"touchInputMode" toml:"touch_input_mode"`

	FillColor       Color `json:"fillColor" toml:"fill_color"`
	FillColor2      Color `json:"fillColor2" toml:"fill_color2"`
	BlendColor      Color `json:"blendColor" toml:"blend_color"`
	BackgroundColor Color `json:"backgroundColor" toml:"background_color"`
	BuzzColor       Color `json:"buzzColor" toml:"buzz_color"`
	QuietColor      Color `json:"quietColor" toml:"quiet_color"`

	ShiftQuirks     bool `json:"shiftQuirks" toml:"shift_quirks"`
	LoadStoreQuirks bool `json:"loadStoreQuirks" toml:"load_store_quirks"`
	VFOrderQuirks   bool `json:"vfOrderQuirks" toml:"vf_order_quirks"`
	ClipQuirks      bool `json:"clipQuirks" toml:"clip_quirks"`
	VBlankQuirks    bool `json:"vBlankQuirks" toml:"vblank_quirks"`
	JumpQuirks      bool `json:"jumpQuirks" toml:"jump_quirks"`
	LogicQuirks     bool `json:"logicQuirks" toml:"logic_quirks"`
}

// UnmarshalJSON decodes options strictly: every required key must be present
// with the right type and enumerated values must be known.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("options must be an object")
	}

	f := fields{raw: raw, prefix: "options."}
	var out Options

	f.int("tickrate", &out.TickRate, true)
	f.int("maxSize", &out.MaxSize, true)

	var rotation int
	if f.int("screenRotation", &rotation, true) {
		out.ScreenRotation = ScreenRotation(rotation)
		if !slices.Contains(rotations, out.ScreenRotation) {
			f.fail("screenRotation", fmt.Errorf("unsupported rotation %d", rotation))
		}
	}
	var font string
	if f.string("fontStyle", &font, true) {
		out.FontStyle = FontStyle(font)
		if !slices.Contains(fontStyles, out.FontStyle) {
			f.fail("fontStyle", fmt.Errorf("unknown font style %q", font))
		}
	}
	var touch string
	if f.string("touchInputMode", &touch, true) {
		out.TouchInputMode = TouchInputMode(touch)
		if !slices.Contains(touchModes, out.TouchInputMode) {
			f.fail("touchInputMode", fmt.Errorf("unknown touch input mode %q", touch))
		}
	}

	f.color("fillColor", &out.FillColor)
	f.color("fillColor2", &out.FillColor2)
	f.color("blendColor", &out.BlendColor)
	f.color("backgroundColor", &out.BackgroundColor)
	f.color("buzzColor", &out.BuzzColor)
	f.color("quietColor", &out.QuietColor)

	f.quirk("shiftQuirks", &out.ShiftQuirks, true)
	f.quirk("loadStoreQuirks", &out.LoadStoreQuirks, true)
	f.quirk("jumpQuirks", &out.JumpQuirks, true)
	f.quirk("logicQuirks", &out.LogicQuirks, true)
	f.quirk("clipQuirks", &out.ClipQuirks, true)
	f.quirk("vBlankQuirks", &out.VBlankQuirks, true)
	// Added to Octo later than the other quirks; older carts omit it.
	f.quirk("vfOrderQuirks", &out.VFOrderQuirks, false)

	if err := f.err(); err != nil {
		return err
	}
	*o = out
	return nil
}

// FieldError reports a missing or mistyped document field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

type fields struct {
	raw    map[string]json.RawMessage
	prefix string
	errs   []error
}

func (f *fields) fail(key string, err error) {
	f.errs = append(f.errs, &FieldError{Field: f.prefix + key, Err: err})
}

func (f *fields) err() error {
	switch len(f.errs) {
	case 0:
		return nil
	case 1:
		return f.errs[0]
	}
	msgs := make([]string, len(f.errs))
	for i, err := range f.errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d invalid fields: %s: %w", len(f.errs), strings.Join(msgs, "; "), f.errs[0])
}

// lookup returns the raw value for key. A missing required key is recorded.
func (f *fields) lookup(key string, required bool) (json.RawMessage, bool) {
	value, ok := f.raw[key]
	if !ok || string(value) == "null" {
		if required {
			f.fail(key, errMissing)
		}
		return nil, false
	}
	return value, true
}

func (f *fields) int(key string, dst *int, required bool) bool {
	value, ok := f.lookup(key, required)
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, dst); err != nil {
		f.fail(key, fmt.Errorf("expected integer, got %s", value))
		return false
	}
	return true
}

func (f *fields) string(key string, dst *string, required bool) bool {
	value, ok := f.lookup(key, required)
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, dst); err != nil {
		f.fail(key, fmt.Errorf("expected string, got %s", value))
		return false
	}
	return true
}

func (f *fields) color(key string, dst *Color) {
	var s string
	if !f.string(key, &s, true) {
		return
	}
	c, err := ParseColor(s)
	if err != nil {
		f.fail(key, err)
		return
	}
	*dst = c
}

// quirk accepts a JSON boolean or the legacy integer flags 0 and 1.
func (f *fields) quirk(key string, dst *bool, required bool) {
	value, ok := f.lookup(key, required)
	if !ok {
		return
	}
	switch string(value) {
	case "true", "1":
		*dst = true
	case "false", "0":
		*dst = false
	default:
		f.fail(key, fmt.Errorf("expected boolean, got %s", value))
	}
}
