package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

func baseName(p string) string {
	return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
}

// CreateOutputPathMap maps each input path to a file in outDir with the
// given extension. Inputs that share a base name get a numeric suffix that
// no other input's base name uses, so no two inputs write to the same output.
// A repeated input keeps its first output. Names compare case-insensitively.
func CreateOutputPathMap(paths []string, outDir string, ext string) map[string]string {
	res := make(map[string]string, len(paths))
	reserved := make(map[string]bool, len(paths))
	for _, p := range paths {
		reserved[strings.ToLower(baseName(p))] = true
	}
	taken := make(map[string]bool, len(paths))
	for _, p := range paths {
		if _, ok := res[p]; ok {
			continue
		}
		base := baseName(p)
		name := base
		for n := 1; taken[strings.ToLower(name)]; n++ {
			candidate := fmt.Sprintf("%s-%d", base, n)
			if !reserved[strings.ToLower(candidate)] {
				name = candidate
			}
		}
		taken[strings.ToLower(name)] = true
		res[p] = filepath.Join(outDir, name+ext)
	}
	return res
}

// SafeExtension returns the lower-cased extension of a client supplied
// filename if it is one of allowed, else "".
func SafeExtension(filename string, allowed []string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	for _, a := range allowed {
		if ext == a {
			return ext
		}
	}
	return ""
}
