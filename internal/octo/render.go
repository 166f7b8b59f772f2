package octo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Format selects how options are rendered.
type Format string

const (
	FormatJSON   Format = "json"
	FormatTOML   Format = "toml"
	FormatOctoRC Format = "octorc"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatJSON, FormatTOML, FormatOctoRC:
		return f, nil
	case "rc", "octo.rc":
		return FormatOctoRC, nil
	default:
		return "", fmt.Errorf("unsupported options format %q (want json, toml or octorc)", value)
	}
}

// Render writes the options in the requested format.
func (o Options) Render(w io.Writer, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(o, "", "  ")
		data = append(data, '\n')
	case FormatTOML:
		data, err = toml.Marshal(o)
	case FormatOctoRC:
		data = o.MarshalOctoRC()
	default:
		return fmt.Errorf("unsupported options format %q", format)
	}
	if err != nil {
		return fmt.Errorf("render options as %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

// octoRCKeys lists the C-Octo configuration keys in the order they are written.
var octoRCKeys = []string{
	"core.tickrate",
	"core.max_rom",
	"core.rotation",
	"core.font",
	"core.touch_mode",
	"color.plane0",
	"color.plane1",
	"color.plane2",
	"color.plane3",
	"color.background",
	"color.sound",
	"quirks.shift",
	"quirks.loadstore",
	"quirks.jump0",
	"quirks.logic",
	"quirks.clip",
	"quirks.vblank",
	"quirks.vforder",
}

func (o Options) octoRCValues() map[string]string {
	return map[string]string{
		"core.tickrate":    strconv.Itoa(o.TickRate),
		"core.max_rom":     strconv.Itoa(o.MaxSize),
		"core.rotation":    strconv.Itoa(int(o.ScreenRotation)),
		"core.font":        string(o.FontStyle),
		"core.touch_mode":  string(o.TouchInputMode),
		"color.plane0":     o.BackgroundColor.String(),
		"color.plane1":     o.FillColor.String(),
		"color.plane2":     o.FillColor2.String(),
		"color.plane3":     o.BlendColor.String(),
		"color.background": o.QuietColor.String(),
		"color.sound":      o.BuzzColor.String(),
		"quirks.shift":     flag(o.ShiftQuirks),
		"quirks.loadstore": flag(o.LoadStoreQuirks),
		"quirks.jump0":     flag(o.JumpQuirks),
		"quirks.logic":     flag(o.LogicQuirks),
		"quirks.clip":      flag(o.ClipQuirks),
		"quirks.vblank":    flag(o.VBlankQuirks),
		"quirks.vforder":   flag(o.VFOrderQuirks),
	}
}

// MarshalOctoRC renders the options as a C-Octo .octo.rc file.
func (o Options) MarshalOctoRC() []byte {
	values := o.octoRCValues()
	var buf bytes.Buffer
	for _, key := range octoRCKeys {
		fmt.Fprintf(&buf, "%s=%s\n", key, values[key])
	}
	return buf.Bytes()
}

// OptionChange is one .octo.rc key whose value differs between two option
// sets.
type OptionChange struct {
	Key  string `json:"key"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Diff lists the keys whose .octo.rc values differ between o and other, in
// file order. From holds o's value.
func (o Options) Diff(other Options) []OptionChange {
	mine, theirs := o.octoRCValues(), other.octoRCValues()
	var changes []OptionChange
	for _, key := range octoRCKeys {
		if mine[key] != theirs[key] {
			changes = append(changes, OptionChange{Key: key, From: mine[key], To: theirs[key]})
		}
	}
	return changes
}

// ParseOctoRC reads options from a C-Octo .octo.rc file. Every key written by
// MarshalOctoRC except quirks.vforder is required; unknown keys and comment
// lines starting with '#' are ignored.
func ParseOctoRC(r io.Reader) (Options, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return Options{}, fmt.Errorf("octo.rc line %d: expected key=value", line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Options{}, fmt.Errorf("read octo.rc: %w", err)
	}

	raw := map[string]json.RawMessage{}
	set := func(jsonKey, rcKey string, quoted bool) {
		value, ok := values[rcKey]
		if !ok {
			return
		}
		if quoted {
			value = strconv.Quote(value)
		}
		raw[jsonKey] = json.RawMessage(value)
	}
	set("tickrate", "core.tickrate", false)
	set("maxSize", "core.max_rom", false)
	set("screenRotation", "core.rotation", false)
	set("fontStyle", "core.font", true)
	set("touchInputMode", "core.touch_mode", true)
	set("backgroundColor", "color.plane0", true)
	set("fillColor", "color.plane1", true)
	set("fillColor2", "color.plane2", true)
	set("blendColor", "color.plane3", true)
	set("quietColor", "color.background", true)
	set("buzzColor", "color.sound", true)
	set("shiftQuirks", "quirks.shift", false)
	set("loadStoreQuirks", "quirks.loadstore", false)
	set("jumpQuirks", "quirks.jump0", false)
	set("logicQuirks", "quirks.logic", false)
	set("clipQuirks", "quirks.clip", false)
	set("vBlankQuirks", "quirks.vblank", false)
	set("vfOrderQuirks", "quirks.vforder", false)

	data, err := json.Marshal(raw)
	if err != nil {
		return Options{}, fmt.Errorf("octo.rc: %w", err)
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("octo.rc: %w", err)
	}
	return opts, nil
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
