package executor

import (
	"fmt"
	"path/filepath"
)

// Toolchain locates the compiler, the VM runner and the artifacts they share.
//
// SourceFile and BytecodeFile are fixed paths reused by every test case, so
// cases must run strictly one after another.
type Toolchain struct {
	LanguageDir  string
	VMTestDir    string
	Compiler     string
	VMRunner     string
	SourceFile   string
	BytecodeFile string
	BuildCommand []string
}

// NewToolchain lays out the toolchain under root the way the repository ships it:
// the compiler in language/, the VM runner in vm/test/.
func NewToolchain(root string) (Toolchain, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Toolchain{}, fmt.Errorf("resolve toolchain root: %w", err)
	}

	languageDir := filepath.Join(abs, "language")
	vmTestDir := filepath.Join(abs, "vm", "test")

	return Toolchain{
		LanguageDir:  languageDir,
		VMTestDir:    vmTestDir,
		Compiler:     filepath.Join(languageDir, "parser"),
		VMRunner:     filepath.Join(vmTestDir, "vm_runner"),
		SourceFile:   filepath.Join(languageDir, "test.src"),
		BytecodeFile: filepath.Join(languageDir, "program.vmcode"),
		BuildCommand: []string{"make"},
	}, nil
}

// Validate checks that every path is absolute. The VM runner works from a
// different directory than the one the compiler writes the bytecode into.
func (t Toolchain) Validate() error {
	if len(t.BuildCommand) == 0 {
		return fmt.Errorf("toolchain: build command must be set")
	}
	paths := map[string]string{
		"language dir":  t.LanguageDir,
		"vm test dir":   t.VMTestDir,
		"compiler":      t.Compiler,
		"vm runner":     t.VMRunner,
		"source file":   t.SourceFile,
		"bytecode file": t.BytecodeFile,
	}
	for name, path := range paths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("toolchain: %s %q must be an absolute path", name, path)
		}
	}
	return nil
}

type buildStep struct {
	component string
	dir       string
}

func (t Toolchain) buildSteps() []buildStep {
	return []buildStep{
		{component: "compiler", dir: t.LanguageDir},
		{component: "VM runner", dir: t.VMTestDir},
	}
}
