package bindgraph

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// OverrideName is an explicit (baseName, ext) pair for one output slot,
// taking precedence over the FileType's defaults.
type OverrideName struct {
	Base string
	Ext  string
}

// MutableFileSpec pairs an "$inputs.I" spec with an "$outputs.J" spec: output
// slot J aliases input path I instead of receiving a newly allocated path.
type MutableFileSpec struct {
	InSpec  string
	OutSpec string
}

var reInputsSpec = regexp.MustCompile(`^\$inputs\.(\d+)$`)
var reOutputsSpec = regexp.MustCompile(`^\$outputs\.(\d+)$`)

// AllocateOutputPaths allocates deterministic per-file-type output paths,
// with mutable-file aliasing. rc's file-type counter is shared across calls
// for a single workflow run, so names stay globally unique.
func AllocateOutputPaths(rc *RunContext, outputDir string, inputFilePaths []string, outputFileTypes []FileType, overrideNames []OverrideName, mutableFiles []MutableFileSpec) ([]string, error) {
	paths := make([]string, len(outputFileTypes))
	aliased := make([]bool, len(outputFileTypes))

	for _, mf := range mutableFiles {
		i, okIn := parseSpecIndex(reInputsSpec, mf.InSpec)
		j, okOut := parseSpecIndex(reOutputsSpec, mf.OutSpec)
		if !okIn || !okOut {
			return nil, wrapf(ErrMalformedBinding, "invalid mutable-file spec %q -> %q", mf.InSpec, mf.OutSpec)
		}
		if i < 0 || i >= len(inputFilePaths) {
			return nil, wrapf(ErrIndexOutOfRange, "mutable-file input index %d out of range", i)
		}
		if j < 0 || j >= len(outputFileTypes) {
			return nil, wrapf(ErrIndexOutOfRange, "mutable-file output index %d out of range", j)
		}
		paths[j] = inputFilePaths[i]
		aliased[j] = true
	}

	effectiveOverrides := overrideNames
	if len(effectiveOverrides) != 0 && len(effectiveOverrides) != len(outputFileTypes) {
		if rc != nil {
			rc.logger().Warnf("overrideNames length %d does not match %d output slots; ignoring overrides", len(effectiveOverrides), len(outputFileTypes))
		}
		effectiveOverrides = nil
	}

	for j, ft := range outputFileTypes {
		if aliased[j] {
			continue
		}
		base, ext := "file", "txt"
		if ft.BaseName != "" {
			base = ft.BaseName
		}
		if ft.Ext != "" {
			ext = ft.Ext
		}
		if effectiveOverrides != nil {
			base, ext = effectiveOverrides[j].Base, effectiveOverrides[j].Ext
		}

		k := rc.nextFileTypeCount(ft.ID)
		name := fmt.Sprintf("%s.%s", base, ext)
		if k > 0 {
			name = fmt.Sprintf("%s-%d.%s", base, k, ext)
		}
		paths[j] = filepath.Join(outputDir, name)
	}
	return paths, nil
}

func parseSpecIndex(re *regexp.Regexp, spec string) (int, bool) {
	m := re.FindStringSubmatch(spec)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
