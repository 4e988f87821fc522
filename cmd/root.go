// kiln [path], kiln build [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiln-build/kiln/internal/builder"
	"github.com/kiln-build/kiln/internal/flavor"
	"github.com/kiln-build/kiln/internal/gen"
	"github.com/kiln-build/kiln/internal/loader"
	"github.com/kiln-build/kiln/internal/msg"
)

var (
	flagConfigs    []string
	flagFlavor     string
	flagNoParallel bool
	flagDefines    []string
	flagBuildDir   string
	flagCheck      bool
	flagFormat     EnumValue = NewEnumValue(gen.FormatNinja, map[string]string{
		gen.FormatNinja: "Generates build.ninja files (default)",
		gen.FormatMake:  "Generates a Makefile",
		gen.FormatMSVS:  "Generates Visual Studio project files",
	})

	flagBuildTarget string
	flagUpToDate    bool
)

// descriptionFile accepts either a description file path or a directory
// containing one.
func descriptionFile(target string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, loader.DefaultFileName)
	}
	return target
}

// parseDefines turns whitespace-separated KEY=VALUE pairs into a map.
// A bare KEY defines it as "1".
func parseDefines(pairs []string) map[string]string {
	defines := make(map[string]string)
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			value = "1"
		}
		defines[key] = value
	}
	return defines
}

// runContext reads the environment-influencing inputs exactly once and
// assembles the run-scoped context. Nothing below this layer touches
// process state.
func runContext(cmd *cobra.Command) builder.RunContext {
	defines := parseDefines(strings.Fields(os.Getenv("KILN_DEFINES")))
	for k, v := range parseDefines(flagDefines) {
		defines[k] = v
	}

	format := flagFormat.Value()
	if env := os.Getenv("KILN_GENERATOR"); env != "" && !cmd.Flags().Changed("gen") {
		if err := flagFormat.Set(env); err != nil {
			msg.Fatal("KILN_GENERATOR: %v", err)
		}
		format = env
	}

	return builder.RunContext{
		Flavor:         flavor.Resolve(runtime.GOOS, flagFlavor),
		Configurations: flagConfigs,
		Format:         format,
		NoParallel:     flagNoParallel,
		Defines:        defines,
		CC:             findCompiler(false),
		CXX:            findCompiler(true),
		BuildDir:       flagBuildDir,
		Check:          flagCheck,
		Locale:         os.Getenv("LC_ALL"),
	}
}

func loadAndRun(cmd *cobra.Command, args []string) (*builder.Driver, *builder.RunResult) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	targets, err := loader.Load(descriptionFile(target))
	if err != nil {
		msg.Fatal("%v", err)
	}

	d := builder.NewDriver(runContext(cmd), targets)
	res, err := d.Run()
	if err != nil {
		msg.Fatal("%v", err)
	}

	for _, path := range res.Written {
		msg.Status("Generated", "%s", path)
	}
	if len(res.Unchanged) > 0 {
		msg.Status("Unchanged", "%d file(s)", len(res.Unchanged))
	}
	return d, res
}

func doGenerate(cmd *cobra.Command, args []string) {
	loadAndRun(cmd, args)
}

func buildSelector() gen.Selector {
	switch flagBuildTarget {
	case "":
		return gen.Default
	case "all":
		return gen.All
	default:
		return gen.Selector(flagBuildTarget)
	}
}

func doBuild(cmd *cobra.Command, args []string) {
	d, _ := loadAndRun(cmd, args)

	sel := buildSelector()
	result, err := d.Build(sel)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if result.Stdout != "" {
		w := &msg.IndentWriter{Indent: "  ", W: os.Stdout}
		fmt.Fprint(w, result.Stdout)
	}
	msg.Status("Finished", "%s build", flagFormat.Value())

	if flagUpToDate {
		upToDate, err := d.IsUpToDate(sel)
		if err != nil {
			msg.Fatal("%v", err)
		}
		if !upToDate {
			msg.Fatal("build is not up to date after building")
		}
		msg.Status("Verified", "nothing left to do")
	}
}

var rootCmd = &cobra.Command{
	Use:   "kiln [path]",
	Short: "kiln meta-build generator",
	Long:  `kiln reads kiln.toml target descriptions and generates build files for ninja, make or MSBuild.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGenerate,
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Generate build files and invoke the underlying build tool",
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	addGenerateFlags(rootCmd)

	rootCmd.AddCommand(buildCmd)
	addGenerateFlags(buildCmd)
	buildCmd.Flags().StringVarP(&flagBuildTarget, "target", "t", "", `Target to build ("all" builds everything)`)
	buildCmd.Flags().BoolVar(&flagUpToDate, "up-to-date", false, "Verify the build reaches a fixed point after building")
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&flagConfigs, "config", "c", []string{"Debug", "Release"}, "Configurations to generate")
	cmd.Flags().StringVar(&flagFlavor, "flavor", "", "Override the platform flavor")
	cmd.Flags().VarP(&flagFormat, "gen", "g", "Generator to use, one of "+flagFormat.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagFormat.CompletionFunc())
	cmd.Flags().BoolVar(&flagNoParallel, "no-parallel", false, "Disable parallel merging and parallel tool invocation")
	cmd.Flags().StringArrayVarP(&flagDefines, "define", "D", nil, "Condition defines as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&flagBuildDir, "build-dir", "build", "Directory for generated build files")
	cmd.Flags().BoolVar(&flagCheck, "check", false, "Fail if regeneration differs from the files on disk")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
