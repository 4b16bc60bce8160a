package expr

import (
	"path"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(path) == "BUILD".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathBase", path.Base)),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: pathDir(path).endsWith("/testdata").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathDir", path.Dir)),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(path) in [".js", ".ts"].
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathExt", path.Ext)),
			),
		),

		// `pathSegments` splits the path into its elements.
		// Example: "tools" in pathSegments(path).
		cel.Function("pathSegments",
			cel.Overload("path_segments", []*cel.Type{cel.StringType}, cel.ListType(cel.StringType),
				cel.UnaryBinding(func(p ref.Val) ref.Val {
					pathValue, ok := p.(types.String)
					if !ok {
						return types.NewErr("pathSegments: invalid string value")
					}

					segments := []string{}
					for s := range strings.SplitSeq(string(pathValue), "/") {
						if s != "" && s != "." {
							segments = append(segments, s)
						}
					}

					return types.NewStringList(types.DefaultTypeAdapter, segments)
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) string) func(ref.Val) ref.Val {
	return func(p ref.Val) ref.Val {
		pathValue, ok := p.(types.String)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return types.String(fn(string(pathValue)))
	}
}
