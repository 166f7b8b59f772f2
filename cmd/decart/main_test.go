package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"octocart/internal/config"
	"octocart/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	cartPath   string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("DECART_LOG_LEVEL", "")
	t.Setenv("DECART_LOG_FORMAT", "")
	t.Setenv("DECART_CACHE_PATH", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	cartPath := filepath.Join(base, "cart.gif")
	testsupport.WriteGIF(t, cartPath, testsupport.NewCart([]byte(testsupport.MinimalCartJSON), 64, 64))

	return &cliTestEnv{cfg: cfg, configPath: configPath, cartPath: cartPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, data)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, nil)
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin []byte) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(bytes.NewReader(stdin))
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIDecodePrintsBody(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"decode", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != testsupport.MinimalCartJSON {
		t.Fatalf("unexpected body:\n got %q\nwant %q", out, testsupport.MinimalCartJSON)
	}
}

func TestCLIDecodeJSONReportsCacheUse(t *testing.T) {
	env := setupCLITestEnv(t)

	var outputs []decodeOutput
	for i := 0; i < 2; i++ {
		out, _, err := runCLI(t, []string{"decode", "--json", env.cartPath}, env.configPath)
		if err != nil {
			t.Fatalf("decode --json: %v", err)
		}
		var payload decodeOutput
		if err := json.Unmarshal([]byte(out), &payload); err != nil {
			t.Fatalf("decode json output: %v (%q)", err, out)
		}
		outputs = append(outputs, payload)
	}
	if outputs[0].FromCache || !outputs[1].FromCache {
		t.Fatalf("expected miss then hit, got %v then %v", outputs[0].FromCache, outputs[1].FromCache)
	}
	if outputs[0].Body != testsupport.MinimalCartJSON || outputs[1].Body != outputs[0].Body {
		t.Fatalf("unexpected bodies: %q / %q", outputs[0].Body, outputs[1].Body)
	}
	if outputs[0].Frames != 3 || outputs[0].Declared != uint32(len(testsupport.MinimalCartJSON)) {
		t.Fatalf("unexpected metadata: %+v", outputs[0])
	}
	if outputs[0].Source != env.cartPath {
		t.Fatalf("unexpected source: %q", outputs[0].Source)
	}
}

func TestCLIDecodeNoCacheSkipsStore(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"decode", "--no-cache", env.cartPath}, env.configPath); err != nil {
		t.Fatalf("decode --no-cache: %v", err)
	}
	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "Cache is empty") {
		t.Fatalf("expected empty cache, got %q", out)
	}
}

func TestCLIDecodeFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	data, err := os.ReadFile(env.cartPath)
	if err != nil {
		t.Fatalf("read cart: %v", err)
	}

	out, _, err := runCLIWithInput(t, []string{"decode", "-"}, env.configPath, data)
	if err != nil {
		t.Fatalf("decode -: %v", err)
	}
	if out != testsupport.MinimalCartJSON {
		t.Fatalf("unexpected body: %q", out)
	}
}

func TestCLIDecodeStrictRejectsTruncated(t *testing.T) {
	env := setupCLITestEnv(t)
	container := testsupport.NewCart([]byte(`{"program":"x"}`))
	container.Frames[0].Pixels = container.Frames[0].Pixels[:20]
	short := filepath.Join(env.baseDir, "short.gif")
	testsupport.WriteGIF(t, short, container)

	out, _, err := runCLI(t, []string{"decode", "--raw", short}, env.configPath)
	if err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if out != `{"prog` {
		t.Fatalf("unexpected partial body: %q", out)
	}

	_, _, err = runCLI(t, []string{"decode", "--strict", short}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "truncated") {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestCLIDecodeHonoursParseSetting(t *testing.T) {
	env := setupCLITestEnv(t)
	notes := filepath.Join(env.baseDir, "notes.gif")
	testsupport.WriteGIF(t, notes, testsupport.NewCart([]byte("just some notes")))

	if _, _, err := runCLI(t, []string{"decode", "--no-cache", notes}, env.configPath); err == nil || !strings.Contains(err.Error(), "payload") {
		t.Fatalf("expected payload error with decode.parse enabled, got %v", err)
	}
	out, _, err := runCLI(t, []string{"decode", "--raw", notes}, env.configPath)
	if err != nil {
		t.Fatalf("decode --raw: %v", err)
	}
	if out != "just some notes" {
		t.Fatalf("unexpected raw body: %q", out)
	}

	env.cfg.Decode.Parse = false
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"decode", notes}, env.configPath)
	if err != nil {
		t.Fatalf("decode with parse disabled: %v", err)
	}
	if out != "just some notes" {
		t.Fatalf("unexpected body: %q", out)
	}
}

func TestCLIDecodeJSONIncludesCart(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"decode", "--json", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("decode --json: %v", err)
	}
	var payload decodeOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json output: %v (%q)", err, out)
	}
	if payload.Cart == nil || payload.Cart.Options.TickRate != 7 {
		t.Fatalf("expected parsed cart in output, got %+v", payload.Cart)
	}

	out, _, err = runCLI(t, []string{"decode", "--json", "--raw", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("decode --json --raw: %v", err)
	}
	if strings.Contains(out, `"cart"`) {
		t.Fatalf("expected no cart with --raw, got %q", out)
	}
}

func TestCLIProgramPrintsSource(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"program", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if out != ": main\n  loop again\n" {
		t.Fatalf("unexpected program output: %q", out)
	}
}

func TestCLIProgramRejectsInvalidDocument(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := filepath.Join(env.baseDir, "bad.gif")
	testsupport.WriteGIF(t, bad, testsupport.NewCart([]byte(`{"program":": main"}`)))

	_, _, err := runCLI(t, []string{"program", bad}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "payload") {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestCLIOptionsFormats(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"options", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if !strings.Contains(out, `"tickrate": 7`) || !strings.Contains(out, `"fillColor": "#FFCC00"`) {
		t.Fatalf("unexpected json options: %q", out)
	}

	out, _, err = runCLI(t, []string{"options", "--format", "octorc", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options --format octorc: %v", err)
	}
	if !strings.Contains(out, "core.tickrate=7\n") || !strings.Contains(out, "color.plane1=#FFCC00\n") {
		t.Fatalf("unexpected octorc options: %q", out)
	}

	out, _, err = runCLI(t, []string{"options", "-f", "toml", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options --format toml: %v", err)
	}
	if !strings.Contains(out, "tickrate = 7") || !strings.Contains(out, "max_size = 3215") {
		t.Fatalf("unexpected toml options: %q", out)
	}

	if _, _, err := runCLI(t, []string{"options", "--format", "yaml", env.cartPath}, env.configPath); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestCLIOptionsDefaultFormatFromConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Output.OptionsFormat = "octorc"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"options", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if !strings.HasPrefix(out, "core.tickrate=7\n") {
		t.Fatalf("expected octorc output, got %q", out)
	}
}

func TestCLIOptionsDiffRC(t *testing.T) {
	env := setupCLITestEnv(t)

	rc, _, err := runCLI(t, []string{"options", "-f", "octorc", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options --format octorc: %v", err)
	}
	rcPath := filepath.Join(env.baseDir, ".octo.rc")
	testsupport.WriteFile(t, rcPath, []byte(rc))

	out, _, err := runCLI(t, []string{"options", "--diff-rc", rcPath, env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options --diff-rc: %v", err)
	}
	if !strings.Contains(out, "octo.rc matches") {
		t.Fatalf("expected matching options, got %q", out)
	}

	edited := strings.Replace(rc, "core.tickrate=7", "core.tickrate=30", 1)
	testsupport.WriteFile(t, rcPath, []byte(edited))
	out, _, err = runCLI(t, []string{"options", "--diff-rc", rcPath, env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("options --diff-rc: %v", err)
	}
	if !strings.Contains(out, "core.tickrate") || !strings.Contains(out, "30") || strings.Contains(out, "core.font") {
		t.Fatalf("expected only the tickrate change, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"options", "--diff-rc", filepath.Join(env.baseDir, "missing.rc"), env.cartPath}, env.configPath); err == nil {
		t.Fatal("expected error for missing octo.rc")
	}
}

func TestCLIShowRendersTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"show", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"== Options ==", "Tick rate", "Octo", "#FFCC00", "Clip quirks", "First line:", ": main", "2 lines"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, []string{"show", "--json", env.cartPath}, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var payload struct {
		Hash string `json:"hash"`
		Cart struct {
			Program string `json:"program"`
		} `json:"cart"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode show json: %v", err)
	}
	if payload.Cart.Program != ": main\n  loop again" || payload.Hash == "" {
		t.Fatalf("unexpected show json: %+v", payload)
	}
}

func TestCLICacheLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"decode", env.cartPath}, env.configPath); err != nil {
		t.Fatalf("decode: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list --json: %v", err)
	}
	var entries []struct {
		Hash string `json:"hash"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode cache list: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != env.cartPath {
		t.Fatalf("unexpected cache entries: %+v", entries)
	}
	hash := entries[0].Hash

	out, _, err = runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, hash[:shortHashLength]) {
		t.Fatalf("expected short hash in table, got %q", out)
	}

	out, _, err = runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "Entries:") || !strings.Contains(out, "[INFO] 1") {
		t.Fatalf("unexpected stats output: %q", out)
	}

	out, _, err = runCLI(t, []string{"cache", "remove", hash[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	if !strings.Contains(out, "Removed "+hash) {
		t.Fatalf("unexpected remove output: %q", out)
	}
	if _, _, err := runCLI(t, []string{"cache", "remove", hash}, env.configPath); err == nil {
		t.Fatal("expected error removing a missing entry")
	}

	if _, _, err := runCLI(t, []string{"decode", env.cartPath}, env.configPath); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 cache entries") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	for _, want := range []string{"[OK] " + env.configPath, "Cache database:", "Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("validate output missing %q:\n%s", want, out)
		}
	}
}

func TestCLIRejectsInvalidLogFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--log-level", "loud", "decode", env.cartPath}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected log level validation error, got %v", err)
	}
}

func TestCLIWritesLogFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Logging.File = true
	env.cfg.Logging.Level = "info"
	writeTestConfig(t, env.configPath, env.cfg)

	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, []string{"decode", env.cartPath}, env.configPath); err != nil {
			t.Fatalf("decode run %d: %v", i, err)
		}
	}
	data, err := os.ReadFile(env.cfg.LogFile())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if got := strings.Count(string(data), `"msg":"cartridge loaded"`); got != 2 {
		t.Fatalf("unexpected load records: got %d want 2\n%s", got, data)
	}
}

func TestCLIMissingCart(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"decode", filepath.Join(env.baseDir, "missing.gif")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "io error") {
		t.Fatalf("expected io error, got %v", err)
	}
}
