// Package boot implements the bootstrap driver (C8): building a machine from its
// sizing environment variables, registering primitives, locating the boot file along the
// search path, and running it to completion.
package boot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/ioport"
	"github.com/kettlelang/mes/internal/log"
	"github.com/kettlelang/mes/internal/primitive"
	"github.com/kettlelang/mes/internal/reader"
	"github.com/kettlelang/mes/internal/vm"
)

// DefaultBootFile is MES_BOOT's default, per §6.
const DefaultBootFile = "boot-0.scm"

// ConfigFromEnv reads the six memory-sizing variables (§5), falling back to
// heap.DefaultConfig for any that are unset or unparsable.
func ConfigFromEnv() heap.Config {
	cfg := heap.DefaultConfig()

	intVar := func(name string, dst *int) {
		v, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return
		}

		*dst = n
	}

	intVar("MES_ARENA", &cfg.ArenaSize)
	intVar("MES_MAX_ARENA", &cfg.MaxArenaSize)
	intVar("MES_JAM", &cfg.JamSize)
	intVar("MES_SAFETY", &cfg.GCSafety)
	intVar("MES_STACK", &cfg.StackSize)
	intVar("MES_MAX_STRING", &cfg.MaxString)

	return cfg
}

// SearchPath returns the ordered candidate paths for a boot file named name, per §4.8's
// environment-directed search: MES_PREFIX/module/mes/<boot>, ./module/mes/<boot>,
// ./mes/module/mes/<boot>, <boot>.
func SearchPath(name string) []string {
	var candidates []string

	if prefix := os.Getenv("MES_PREFIX"); prefix != "" {
		candidates = append(candidates, filepath.Join(prefix, "module", "mes", name))
	}

	candidates = append(candidates,
		filepath.Join("module", "mes", name),
		filepath.Join("mes", "module", "mes", name),
		name,
	)

	return candidates
}

// Locate finds the first candidate in SearchPath(name) that exists on disk.
func Locate(name string) (string, error) {
	for _, candidate := range SearchPath(name) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("boot: could not locate %q along search path", name)
}

// Machine builds a fully initialized evaluator: heap sized from the environment,
// primitives installed, ready to Eval boot forms.
func Machine(opts ...vm.Option) *vm.Machine {
	h := heap.New(heap.WithConfig(ConfigFromEnv()), heap.WithLogger(log.DefaultLogger()))
	m := vm.New(h, opts...)

	primitive.Install(m)
	bindStandardPorts(m)

	return m
}

// bindStandardPorts registers the stdin/stdout port cells every boot file expects to
// find under those names, backed by the process's own standard streams. A console
// (internal/tty) that later takes over the terminal rebinds these handles in place.
func bindStandardPorts(m *vm.Machine) {
	h := m.Heap()
	ports := m.Ports()

	stdin := ports.Register(&ioport.Port{Reader: os.Stdin})
	stdout := ports.Register(&ioport.Port{Writer: os.Stdout})

	h.RegisterPort("stdin", h.MakePort(stdin))
	h.RegisterPort("stdout", h.MakePort(stdout))
}

// Run locates and reads bootFile (MES_BOOT's value, or DefaultBootFile), evaluates every
// top-level form in the initial module's environment, and returns the value of the last
// form.
func Run(m *vm.Machine, bootFile string) (cell.Index, error) {
	if bootFile == "" {
		bootFile = os.Getenv("MES_BOOT")
	}

	if bootFile == "" {
		bootFile = DefaultBootFile
	}

	path, err := Locate(bootFile)
	if err != nil {
		return cell.Nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return cell.Nil, fmt.Errorf("boot: reading %s: %w", path, err)
	}

	h := m.Heap()
	forms, err := reader.New(h, string(src)).ReadAll()
	if err != nil {
		return cell.Nil, fmt.Errorf("boot: parsing %s: %w", path, err)
	}

	formsList := h.Empty
	for i := len(forms) - 1; i >= 0; i-- {
		formsList = h.Cons(forms[i], formsList)
	}

	expanded, err := m.Expand(formsList)
	if err != nil {
		return cell.Nil, fmt.Errorf("boot: expanding %s: %w", path, err)
	}

	result := h.Unspecified

	for cur := expanded; cur != h.Empty; cur = h.Cdr(cur) {
		value, err := m.Eval(h.Car(cur), h.Empty)
		if err != nil {
			return cell.Nil, fmt.Errorf("boot: evaluating %s: %w", path, err)
		}

		result = value
	}

	return result, nil
}
