package cmd

import (
	"os"
	"os/exec"
)

var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "tcc", "cl"}
	commonCxxCompilers = []string{"clang++", "g++", "clang", "gcc", "icpx", "icx", "icpc", "icc", "cl"}
)

// findCompiler picks the compiler command baked into generated build
// files: CC/CXX from the environment first, then common compilers on
// PATH. Falls back to "cc"/"c++" so generated files stay valid even
// when nothing is installed.
func findCompiler(needCxx bool) string {
	cc := os.Getenv("CC")
	cxx := os.Getenv("CXX")

	if needCxx && cxx != "" {
		return cxx
	}
	if !needCxx && cc != "" {
		return cc
	}
	if cxx != "" {
		return cxx
	}
	if cc != "" {
		return cc
	}

	compilersToTry := commonCCompilers
	if needCxx {
		compilersToTry = commonCxxCompilers
	}
	for _, compiler := range compilersToTry {
		if path, err := exec.LookPath(compiler); err == nil {
			return path
		}
	}

	if needCxx {
		return "c++"
	}
	return "cc"
}
