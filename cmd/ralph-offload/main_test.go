package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-offload/pkg/wire"
)

const program = `
entry: demo.Main.run
classes:
  - name: demo.Main
    methods:
      - {name: run, static: true, params: [int], returns: int, expr: {call: [demo.Main.twice, v0]}}
      - {name: twice, static: true, params: [int], returns: int, expr: {mul: [v0, 2]}}
`

func resetFlags() {
	dIR = false
	dInline = false
	dLayout = false
	dC = false
	outputFile = ""
	entryName = ""
	configFile = ""
	noInline = false
	bigEndian = false
	verbose = false
	logFormat = ""
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestDumpFlagsExist(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	for _, name := range dumpFlagNames {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"single-dash dir", []string{"-dir", "p.yaml"}, []string{"--dir", "p.yaml"}},
		{"double-dash unchanged", []string{"--dinline", "p.yaml"}, []string{"--dinline", "p.yaml"}},
		{"all dumps", []string{"-dir", "-dinline", "-dlayout", "-dc"}, []string{"--dir", "--dinline", "--dlayout", "--dc"}},
		{"other flags unchanged", []string{"-o", "out.c", "-v", "p.yaml"}, []string{"-o", "out.c", "-v", "p.yaml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeFlags(tc.input)
			if strings.Join(got, " ") != strings.Join(tc.expected, " ") {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"prog.yaml", "prog.c"},
		{"dir/prog.yml", "dir/prog.c"},
		{"prog", "prog.c"},
	}
	for _, tc := range tests {
		if got := outputFilename(tc.input); got != tc.expected {
			t.Errorf("outputFilename(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCompileWritesOutputFile(t *testing.T) {
	in := writeFile(t, "prog.yaml", program)
	if _, _, err := execute(t, in); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	data, err := os.ReadFile(strings.TrimSuffix(in, ".yaml") + ".c")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), "int Main_run_0(int v0)") {
		t.Errorf("output lacks the entry function:\n%s", data)
	}
}

func TestDumps(t *testing.T) {
	in := writeFile(t, "prog.yaml", program)
	tests := []struct {
		flag string
		want string
	}{
		{"-dir", "function Main_run_0(v0: int): int {"},
		{"-dinline", "inline Main_twice_1"},
		{"-dlayout", "0x000003 Object"},
		{"-dc", "int main(void) {"},
	}
	for _, tc := range tests {
		t.Run(tc.flag, func(t *testing.T) {
			out, _, err := execute(t, tc.flag, "-o", filepath.Join(t.TempDir(), "out.c"), in)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("%s output lacks %q:\n%s", tc.flag, tc.want, out)
			}
		})
	}
}

func TestNoInlineFlag(t *testing.T) {
	in := writeFile(t, "prog.yaml", program)
	out, _, err := execute(t, "--no-inline", "-o", "-", in)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "return Main_twice_1(v0);") {
		t.Errorf("call was inlined despite --no-inline:\n%s", out)
	}
}

func TestConfigFile(t *testing.T) {
	in := writeFile(t, "prog.yaml", program)
	cfg := writeFile(t, "opts.yaml", "inline: false\nmalloc: GC_malloc\n")
	out, _, err := execute(t, "--config", cfg, "-o", "-", in)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Main_twice_1(v0)") {
		t.Errorf("inline: false in the config file was ignored:\n%s", out)
	}
	if _, _, err := execute(t, "--config", writeFile(t, "bad.yaml", "byte_order: middle\n"), in); err == nil {
		t.Error("bad byte order accepted")
	}
}

func TestVerboseLogsPasses(t *testing.T) {
	in := writeFile(t, "prog.yaml", program)
	_, errOut, err := execute(t, "-v", "--log-format", "json", "-o", "-", in)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, pass := range []string{"trace", "seal", "inline", "dispatch", "codegen"} {
		if !strings.Contains(errOut, `"pass":"`+pass+`"`) {
			t.Errorf("no log of pass %s in:\n%s", pass, errOut)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{"missing file", func(t *testing.T) []string { return []string{"nope.yaml"} }, "nope.yaml"},
		{"bad manifest", func(t *testing.T) []string {
			return []string{writeFile(t, "bad.yaml", "classes: [{name: a.B, extends: a.C}]")}
		}, "a.C"},
		{"unknown entry", func(t *testing.T) []string {
			return []string{"--entry", "demo.Main.gone", writeFile(t, "prog.yaml", program)}
		}, "gone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args(t)...)
			if err == nil {
				t.Fatal("Execute() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Execute() error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"120", "the task exited with 120 (deserialization failure)"},
		{"139", "the task exited with 139 (SIGSEGV?)"},
		{"3", "the task exited with 3"},
	}
	for _, tc := range tests {
		out, _, err := execute(t, "status", tc.code)
		if err != nil {
			t.Fatalf("status %s: %v", tc.code, err)
		}
		if strings.TrimSpace(out) != tc.want {
			t.Errorf("status %s = %q, want %q", tc.code, strings.TrimSpace(out), tc.want)
		}
	}
	if _, _, err := execute(t, "status", "abc"); err == nil {
		t.Error("status abc succeeded")
	}
}

func TestDecodeCommand(t *testing.T) {
	shared := &wire.Array{Data: []int32{1}}
	root := &wire.Object{Tag: 3, Fields: []wire.Value{int32(2), shared, shared, nil}}
	for _, big := range []bool{false, true} {
		var order binary.ByteOrder = binary.LittleEndian
		args := []string{"decode"}
		if big {
			order = binary.BigEndian
			args = append(args, "--big-endian")
		}
		var buf bytes.Buffer
		if err := wire.Encode(&buf, root, order); err != nil {
			t.Fatal(err)
		}
		path := writeFile(t, "graph.bin", buf.String())
		out, _, err := execute(t, append(args, path)...)
		if err != nil {
			t.Fatalf("decode (big endian %v): %v", big, err)
		}
		want := "#0 object tag=3 {\n  int 2\n  #1 int[] [1]\n  @1\n  null\n}\n"
		if out != want {
			t.Errorf("decode (big endian %v) =\n%s\nwant\n%s", big, out, want)
		}
	}
}
