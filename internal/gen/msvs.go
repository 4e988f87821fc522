package gen

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/kiln-build/kiln/internal/flavor"
	"github.com/kiln-build/kiln/internal/graph"
)

//
// structures for .vcxproj
//

type vsProject struct {
	XMLName              xml.Name                `xml:"Project"`
	DefaultTargets       string                  `xml:"DefaultTargets,attr"`
	ToolsVersion         string                  `xml:"ToolsVersion,attr"`
	XMLNS                string                  `xml:"xmlns,attr"`
	PropertyGroups       []vsPropertyGroup       `xml:"PropertyGroup"`
	ItemGroups           []vsItemGroup           `xml:"ItemGroup"`
	ImportGroups         []vsImportGroup         `xml:"ImportGroup"`
	ItemDefinitionGroups []vsItemDefinitionGroup `xml:"ItemDefinitionGroup"`
	Imports              []vsImport              `xml:"Import"`
}

type vsItemGroup struct {
	Label                 string                   `xml:"Label,attr,omitempty"`
	ProjectConfigurations []vsProjectConfiguration `xml:"ProjectConfiguration,omitempty"`
	ClCompiles            []vsClCompile            `xml:"ClCompile,omitempty"`
	ProjectReferences     []vsProjectReference     `xml:"ProjectReference,omitempty"`
}

type vsProjectConfiguration struct {
	Include       string `xml:"Include,attr"`
	Configuration string `xml:"Configuration"`
	Platform      string `xml:"Platform"`
}

type vsClCompile struct {
	Include string `xml:"Include,attr"`
}

type vsProjectReference struct {
	Include                 string `xml:"Include,attr"`
	Project                 string `xml:"Project"`
	Name                    string `xml:"Name"`
	LinkLibraryDependencies bool   `xml:"LinkLibraryDependencies"`
}

type vsPropertyGroup struct {
	Label                        string `xml:"Label,attr,omitempty"`
	Condition                    string `xml:"Condition,attr,omitempty"`
	PreferredToolArchitecture    string `xml:"PreferredToolArchitecture,omitempty"`
	ProjectGuid                  string `xml:"ProjectGuid,omitempty"`
	Keyword                      string `xml:"Keyword,omitempty"`
	WindowsTargetPlatformVersion string `xml:"WindowsTargetPlatformVersion,omitempty"`
	ProjectName                  string `xml:"ProjectName,omitempty"`
	ConfigurationType            string `xml:"ConfigurationType,omitempty"`
	PlatformToolset              string `xml:"PlatformToolset,omitempty"`
	CharacterSet                 string `xml:"CharacterSet,omitempty"`
	OutDir                       string `xml:"OutDir,omitempty"`
	IntDir                       string `xml:"IntDir,omitempty"`
	TargetName                   string `xml:"TargetName,omitempty"`
	TargetExt                    string `xml:"TargetExt,omitempty"`
	GenerateManifest             bool   `xml:"GenerateManifest,omitempty"`
}

type vsImportGroup struct {
	Label   string     `xml:"Label,attr,omitempty"`
	Imports []vsImport `xml:"Import"`
}

type vsImport struct {
	Project   string `xml:"Project,attr"`
	Condition string `xml:"Condition,attr,omitempty"`
	Label     string `xml:"Label,attr,omitempty"`
}

type vsItemDefinitionGroup struct {
	Condition string         `xml:"Condition,attr"`
	ClCompile vsClCompileDef `xml:"ClCompile"`
	Link      vsLinkDef      `xml:"Link"`
}

type vsClCompileDef struct {
	WarningLevel                 string `xml:"WarningLevel"`
	AdditionalIncludeDirectories string `xml:"AdditionalIncludeDirectories"`
	PreprocessorDefinitions      string `xml:"PreprocessorDefinitions"`
	Optimization                 string `xml:"Optimization,omitempty"`
}

type vsLinkDef struct {
	SubSystem              string `xml:"SubSystem"`
	AdditionalDependencies string `xml:"AdditionalDependencies"`
	AdditionalOptions      string `xml:"AdditionalOptions,omitempty"`
}

type vsFiltersProject struct {
	XMLName      xml.Name             `xml:"Project"`
	ToolsVersion string               `xml:"ToolsVersion,attr"`
	XMLNS        string               `xml:"xmlns,attr"`
	ItemGroups   []vsFiltersItemGroup `xml:"ItemGroup"`
}

type vsFiltersItemGroup struct {
	ClCompiles []vsFiltersClCompile `xml:"ClCompile,omitempty"`
	Filters    []vsFiltersFilter    `xml:"Filter,omitempty"`
}

type vsFiltersClCompile struct {
	Include string `xml:"Include,attr"`
	Filter  string `xml:"Filter"`
}

type vsFiltersFilter struct {
	Include          string `xml:"Include,attr"`
	UniqueIdentifier string `xml:"UniqueIdentifier"`
	Extensions       string `xml:"Extensions"`
}

//
// generator
//

// C++ project type, per the Visual Studio project type registry.
const vcxprojTypeGUID = "{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}"

// guidNamespace seeds name-based GUIDs so that regenerating the same
// project yields byte-identical files.
var guidNamespace = uuid.MustParse("b7f8a2d4-5c1e-4a90-9f36-2e8d71c0443a")

func projectGUID(name string) string {
	return strings.ToUpper(uuid.NewSHA1(guidNamespace, []byte("project:"+name)).String())
}

// MSVSGen emits one vcxproj (plus filters) per target and a solution
// tying them together. Output paths always use Windows conventions
// regardless of the host.
type MSVSGen struct {
	locator MSBuildLocator
}

func (g *MSVSGen) Name() string { return FormatMSVS }

func (g *MSVSGen) BuildLocation(dir, configuration string) string {
	// The solution covers every configuration.
	return dir
}

func (g *MSVSGen) BuiltArtifactPath(name, targetType string, opts ArtifactOptions) string {
	cfg := opts.Configuration
	if cfg == "" {
		cfg = "Default"
	}
	return path.Join(cfg, decorate(name, targetType, flavor.Windows, opts.Bare))
}

// solutionName picks the first executable target, falling back to the
// first target of any type.
func solutionName(in *Input) string {
	for _, t := range in.Targets {
		if t.Type == graph.TypeExecutable {
			return t.Name
		}
	}
	return in.Targets[0].Name
}

func (g *MSVSGen) Generate(in *Input) ([]OutputFile, error) {
	if len(in.Targets) == 0 {
		return nil, fmt.Errorf("msvs generator needs at least one target")
	}
	if len(in.Configurations) == 0 {
		return nil, fmt.Errorf("msvs generator needs at least one configuration")
	}

	files := make([]OutputFile, 0, 2*len(in.Targets)+1)
	for _, t := range in.Targets {
		proj, err := g.projectFile(in, t)
		if err != nil {
			return nil, err
		}
		files = append(files,
			OutputFile{Path: t.Name + `\` + t.Name + ".vcxproj", Content: proj},
			OutputFile{Path: t.Name + `\` + t.Name + ".vcxproj.filters", Content: g.filtersFile(t)},
		)
	}
	files = append(files, OutputFile{
		Path:    solutionName(in) + ".sln",
		Content: g.solutionFile(in),
	})
	return files, nil
}

func (g *MSVSGen) solutionFile(in *Input) string {
	var sb strings.Builder

	writeln(&sb, "Microsoft Visual Studio Solution File, Format Version 12.00")
	writeln(&sb, "# Visual Studio Version 17")
	for _, t := range in.Targets {
		writeln(&sb,
			`Project("`, vcxprojTypeGUID, `") = "`, t.Name, `", "`, t.Name, `\`, t.Name, `.vcxproj", "{`, projectGUID(t.Name), `}"`,
		)
		writeln(&sb, "EndProject")
	}
	writeln(&sb, "Global")
	writeln(&sb, "\tGlobalSection(SolutionConfigurationPlatforms) = preSolution")
	for _, cfg := range in.Configurations {
		writeln(&sb, "\t\t", cfg, "|x64 = ", cfg, "|x64")
	}
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "\tGlobalSection(ProjectConfigurationPlatforms) = postSolution")
	for _, t := range in.Targets {
		guid := projectGUID(t.Name)
		for _, cfg := range in.Configurations {
			writeln(&sb, "\t\t{", guid, "}.", cfg, "|x64.ActiveCfg = ", cfg, "|x64")
			writeln(&sb, "\t\t{", guid, "}.", cfg, "|x64.Build.0 = ", cfg, "|x64")
		}
	}
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "\tGlobalSection(SolutionProperties) = preSolution")
	writeln(&sb, "\t\tHideSolutionNode = FALSE")
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "\tGlobalSection(ExtensibilityGlobals) = postSolution")
	writeln(&sb, "\t\tSolutionGuid = {", projectGUID("solution:"+solutionName(in)), "}")
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "EndGlobal")

	return sb.String()
}

func (g *MSVSGen) projectFile(in *Input, t ResolvedTarget) (string, error) {
	clCompiles := make([]vsClCompile, 0, len(t.Sources))
	for _, src := range t.Sources {
		// Sources are relative to the build directory; projects live one
		// level below it.
		clCompiles = append(clCompiles, vsClCompile{Include: `..\` + winPath(src)})
	}

	projectRefs := make([]vsProjectReference, 0, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		projectRefs = append(projectRefs, vsProjectReference{
			Include:                 fmt.Sprintf(`..\%s\%s.vcxproj`, dep, dep),
			Project:                 "{" + projectGUID(dep) + "}",
			Name:                    dep,
			LinkLibraryDependencies: true,
		})
	}

	projectConfigs := make([]vsProjectConfiguration, 0, len(in.Configurations))
	for _, cfg := range in.Configurations {
		projectConfigs = append(projectConfigs, vsProjectConfiguration{
			Include:       cfg + "|x64",
			Configuration: cfg,
			Platform:      "x64",
		})
	}

	propertyGroups := []vsPropertyGroup{
		{PreferredToolArchitecture: "x64"},
		{
			Label:                        "Globals",
			ProjectGuid:                  "{" + projectGUID(t.Name) + "}",
			Keyword:                      "Win32Proj",
			WindowsTargetPlatformVersion: "10.0",
			ProjectName:                  t.Name,
		},
	}
	for _, cfg := range in.Configurations {
		cond := fmt.Sprintf("'$(Configuration)|$(Platform)'=='%s|x64'", cfg)
		propertyGroups = append(propertyGroups,
			vsPropertyGroup{
				Condition:         cond,
				Label:             "Configuration",
				ConfigurationType: configurationType(t.Type),
				PlatformToolset:   "v143",
				CharacterSet:      "Unicode",
			},
			vsPropertyGroup{
				Condition:        cond,
				OutDir:           `$(SolutionDir)` + cfg + `\`,
				IntDir:           `$(SolutionDir)` + t.Name + `\int\` + cfg + `\`,
				TargetName:       t.Name,
				TargetExt:        targetExt(t.Type),
				GenerateManifest: true,
			},
		)
	}

	itemDefs := make([]vsItemDefinitionGroup, 0, len(in.Configurations))
	for _, cfg := range in.Configurations {
		settings := t.Settings[cfg]
		itemDefs = append(itemDefs, vsItemDefinitionGroup{
			Condition: fmt.Sprintf("'$(Configuration)|$(Platform)'=='%s|x64'", cfg),
			ClCompile: vsClCompileDef{
				WarningLevel:                 "Level3",
				AdditionalIncludeDirectories: includeDirectories(settings),
				PreprocessorDefinitions:      preprocessorDefinitions(settings),
				Optimization:                 optimization(settings.OptLevel),
			},
			Link: vsLinkDef{
				SubSystem:              "Console",
				AdditionalDependencies: additionalDependencies(settings),
				AdditionalOptions:      additionalOptions(settings),
			},
		})
	}

	itemGroups := []vsItemGroup{
		{Label: "ProjectConfigurations", ProjectConfigurations: projectConfigs},
		{ClCompiles: clCompiles},
		{ProjectReferences: projectRefs},
	}

	project := vsProject{
		DefaultTargets:       "Build",
		ToolsVersion:         "17.0",
		XMLNS:                "http://schemas.microsoft.com/developer/msbuild/2003",
		PropertyGroups:       propertyGroups,
		ItemGroups:           itemGroups,
		ItemDefinitionGroups: itemDefs,
		Imports: []vsImport{
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.Default.props`},
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.props`},
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.targets`},
		},
		ImportGroups: []vsImportGroup{{Label: "ExtensionTargets"}},
	}

	output, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(output), nil
}

func (g *MSVSGen) filtersFile(t ResolvedTarget) string {
	clCompiles := make([]vsFiltersClCompile, 0, len(t.Sources))
	for _, src := range t.Sources {
		clCompiles = append(clCompiles, vsFiltersClCompile{Include: `..\` + winPath(src), Filter: "Source Files"})
	}
	filters := vsFiltersProject{
		ToolsVersion: "17.0",
		XMLNS:        "http://schemas.microsoft.com/developer/msbuild/2003",
		ItemGroups: []vsFiltersItemGroup{
			{ClCompiles: clCompiles},
			{Filters: []vsFiltersFilter{{
				Include:          "Source Files",
				UniqueIdentifier: "{" + projectGUID("filter:"+t.Name) + "}",
				Extensions:       "cpp;c;cc;cxx;c++;cppm;ixx;def;odl;idl;hpj;bat;asm;asmx",
			}}},
		},
	}
	output, err := xml.MarshalIndent(filters, "", "  ")
	if err != nil {
		// The filters structure carries no user data that can fail to
		// marshal.
		panic(err)
	}
	return xml.Header + string(output)
}

func (g *MSVSGen) InvokeBuild(location string, sel Selector, noParallel bool) (*BuildResult, error) {
	msbuild, err := g.locator.FindMSBuild()
	if err != nil {
		return nil, err
	}

	// MSBuild picks up the single solution in the directory.
	args := []string{"/v:m"}
	if noParallel {
		args = append(args, "/m:1")
	}
	switch sel {
	case Default, All:
		args = append(args, "/t:Build")
	default:
		args = append(args, "/t:"+strings.ReplaceAll(string(sel), ".", "_"))
	}
	return runTool(location, msbuild, args...)
}

// IsUpToDate re-invokes MSBuild and checks that no compile or link task
// ran. This is conservative: unrecognized output counts as work done.
func (g *MSVSGen) IsUpToDate(location string, sel Selector) (bool, error) {
	res, err := g.InvokeBuild(location, sel, true)
	if err != nil {
		var toolErr *ExternalToolFailure
		if errors.As(err, &toolErr) {
			return false, nil
		}
		return false, err
	}
	if strings.Contains(res.Stdout, "ClCompile:") || strings.Contains(res.Stdout, "Link:") {
		return false, nil
	}
	return true, nil
}

func winPath(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

func configurationType(targetType string) string {
	switch targetType {
	case graph.TypeStaticLibrary:
		return "StaticLibrary"
	case graph.TypeSharedLibrary:
		return "DynamicLibrary"
	case graph.TypeNone:
		return "Utility"
	default:
		return "Application"
	}
}

func targetExt(targetType string) string {
	switch targetType {
	case graph.TypeStaticLibrary:
		return ".lib"
	case graph.TypeSharedLibrary:
		return ".dll"
	case graph.TypeNone:
		return ""
	default:
		return ".exe"
	}
}

func includeDirectories(s graph.Settings) string {
	dirs := make([]string, 0, len(s.IncludeDirs))
	for _, dir := range s.IncludeDirs {
		dirs = append(dirs, winPath(dir))
	}
	return strings.Join(append(dirs, "%(AdditionalIncludeDirectories)"), ";")
}

func preprocessorDefinitions(s graph.Settings) string {
	defines := append([]string{"WIN32", "_WINDOWS"}, s.Defines...)
	return strings.Join(append(defines, "%(PreprocessorDefinitions)"), ";")
}

func additionalDependencies(s graph.Settings) string {
	libs := make([]string, 0, len(s.Libraries))
	for _, lib := range s.Libraries {
		if !strings.HasSuffix(lib, ".lib") {
			lib += ".lib"
		}
		libs = append(libs, lib)
	}
	return strings.Join(append(libs, "%(AdditionalDependencies)"), ";")
}

func additionalOptions(s graph.Settings) string {
	if len(s.Ldflags) == 0 {
		return ""
	}
	return "%(AdditionalOptions) " + strings.Join(s.Ldflags, " ")
}

func optimization(optLevel string) string {
	switch optLevel {
	case "", "0":
		return "Disabled"
	case "s", "z":
		return "MinSpace"
	default:
		return "MaxSpeed"
	}
}
