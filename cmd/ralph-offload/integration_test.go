package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// CompileTestSpec is one compilation case: a manifest and checks on the
// generated C or on the failure.
type CompileTestSpec struct {
	Name        string   `yaml:"name"`
	Flags       []string `yaml:"flags"`
	Program     string   `yaml:"program"`
	Expect      []string `yaml:"expect"`       // Strings that must appear in output
	ExpectOrder []string `yaml:"expect_order"` // Strings that must appear in this order
	ExpectNot   []string `yaml:"expect_not"`   // Strings that must NOT appear in output
	ExpectError string   `yaml:"expect_error"` // Substring of the expected error
	Skip        string   `yaml:"skip,omitempty"`
}

// CompileTestFile is the structure of compile.yaml
type CompileTestFile struct {
	Tests []CompileTestSpec `yaml:"tests"`
}

// RuntimeTestSpec is a program whose entry takes and returns ints, run
// natively against an encoded argument stream.
type RuntimeTestSpec struct {
	Name    string   `yaml:"name"`
	Flags   []string `yaml:"flags"`
	Program string   `yaml:"program"`
	Args    []int32  `yaml:"args"`
	Result  int32    `yaml:"result"`
	Skip    string   `yaml:"skip,omitempty"`
}

// RuntimeTestFile is the structure of runtime.yaml
type RuntimeTestFile struct {
	Tests []RuntimeTestSpec `yaml:"tests"`
}

func compileCase(t *testing.T, flags []string, program string) (string, error) {
	t.Helper()
	in := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(in, []byte(program), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	args := append(append([]string{}, flags...), "-o", "-", in)
	out, errOut, err := execute(t, args...)
	if err != nil && errOut != "" {
		t.Logf("stderr: %s", errOut)
	}
	return out, err
}

func TestCompileYAML(t *testing.T) {
	data, err := os.ReadFile("testdata/compile.yaml")
	if err != nil {
		t.Fatalf("compile.yaml not found: %v", err)
	}

	var testFile CompileTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse compile.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}
			output, err := compileCase(t, tc.Flags, tc.Program)
			if tc.ExpectError != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, compiled:\n%s", tc.ExpectError, output)
				}
				if !strings.Contains(err.Error(), tc.ExpectError) {
					t.Errorf("error = %v, want it to contain %q", err, tc.ExpectError)
				}
				return
			}
			if err != nil {
				t.Fatalf("ralph-offload failed: %v", err)
			}

			for _, exp := range tc.Expect {
				if !strings.Contains(output, exp) {
					t.Errorf("expected output to contain %q\nGot:\n%s", exp, output)
				}
			}

			lastIdx := -1
			for _, exp := range tc.ExpectOrder {
				idx := strings.Index(output, exp)
				if idx == -1 {
					t.Errorf("expected output to contain %q for order check\nGot:\n%s", exp, output)
				} else if idx <= lastIdx {
					t.Errorf("expected %q to appear after previous pattern (position %d vs %d)\nGot:\n%s", exp, idx, lastIdx, output)
				}
				lastIdx = idx
			}

			for _, exp := range tc.ExpectNot {
				if strings.Contains(output, exp) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", exp, output)
				}
			}
		})
	}
}

func TestRuntimeYAML(t *testing.T) {
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("C compiler 'cc' not found in PATH")
	}

	data, err := os.ReadFile("testdata/runtime.yaml")
	if err != nil {
		t.Fatalf("runtime.yaml not found: %v", err)
	}

	var testFile RuntimeTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse runtime.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}
			output, err := compileCase(t, tc.Flags, tc.Program)
			if err != nil {
				t.Fatalf("ralph-offload failed: %v", err)
			}

			tmpDir := t.TempDir()
			src := filepath.Join(tmpDir, "prog.c")
			bin := filepath.Join(tmpDir, "prog")
			if err := os.WriteFile(src, []byte(output), 0644); err != nil {
				t.Fatal(err)
			}
			if out, err := exec.Command(cc, "-o", bin, src, "-lm").CombinedOutput(); err != nil {
				t.Fatalf("cc failed: %v\n%s\nSource:\n%s", err, out, output)
			}

			var stdin bytes.Buffer
			for _, a := range tc.Args {
				binary.Write(&stdin, binary.LittleEndian, a)
			}
			cmd := exec.Command(bin)
			cmd.Stdin = &stdin
			got, err := cmd.Output()
			if err != nil {
				t.Fatalf("program failed: %v", err)
			}

			// completion flag, then the result
			if len(got) != 5 || got[0] != 1 {
				t.Fatalf("stdout = %v, want completion and one int", got)
			}
			if r := int32(binary.LittleEndian.Uint32(got[1:])); r != tc.Result {
				t.Errorf("result = %d, want %d", r, tc.Result)
			}
		})
	}
}
