package patterns

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobuffalo/flect"
	"github.com/zyedidia/glob"

	"github.com/PhucNguyen204/streammatch/pkg/patternset"
)

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

// LoadDirRecursive đọc mọi tập pattern YAML dưới root, theo thứ tự đường dẫn
// để thứ tự pattern trong automaton ổn định.
func LoadDirRecursive(root string) ([]patternset.PatternSet, error) {
	return LoadDir(root, "")
}

// LoadDir như LoadDirRecursive nhưng chỉ nhận file có đường dẫn tương đối
// (dạng slash) khớp glob include. include rỗng nhận tất cả.
func LoadDir(root, include string) ([]patternset.PatternSet, error) {
	var g *glob.Glob
	if include != "" {
		var err error
		g, err = glob.Compile(include)
		if err != nil { return nil, fmt.Errorf("include glob %q: %w", include, err) }
	}
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil { return err }
		if d.IsDir() || !isYAML(p) { return nil }
		if g != nil {
			rel, err := filepath.Rel(root, p)
			if err != nil { return err }
			if !g.MatchString(filepath.ToSlash(rel)) { return nil }
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil { return nil, err }
	sort.Strings(paths)

	out := make([]patternset.PatternSet, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p); if err != nil { return nil, err }
		s, err := patternset.LoadPatternSetYAML(b)
		if err != nil { return nil, fmt.Errorf("%s: %w", p, err) }
		if s.Name == "" { s.Name = setName(p) }
		out = append(out, s)
	}
	return out, nil
}

// setName: "http-idl.yaml" -> "http_idl"
func setName(p string) string {
	return flect.Underscore(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
}
