// kiln init [name], kiln new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kiln-build/kiln/internal/msg"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "kiln"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn scaffolds a description file and a source stub in dir.
func initIn(dir, name string, lib bool) {
	targetType := "executable"
	if lib {
		targetType = "static_library"
	}

	writefile(`[[target]]
name = "`+name+`"
type = "`+targetType+`"
sources = ["src/**/*.c"]

[target.configurations.Debug]
defines = ["DEBUG"]

[target.configurations.Release]
defines = ["NDEBUG"]
opt_level = "2"
`, dir, "kiln.toml")

	mkdir(dir, "src")

	if lib {
		writefile(`#include "`+name+`.h"
#include <stdio.h>

void `+name+`_hello(void) {
    puts("Hello, World!");
}
`, dir, "src", name+".c")

		writefile(`#ifndef `+strings.ToUpper(name)+`_H
#define `+strings.ToUpper(name)+`_H

void `+name+`_hello(void);

#endif
`, dir, "src", name+".h")
	} else {
		writefile(`#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	}

	writefile(`build/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to generate build files, or %s to build.\n",
		color.HiCyanString(programName+" "+dir), color.HiCyanString(programName+" build "+dir))
}

var library bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new package in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], library)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new package in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), library)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&library, "lib", "l", false, "Create a library target")

	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVarP(&library, "lib", "l", false, "Create a library target")
}
