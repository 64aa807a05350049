package project

import (
	"os"
	"path/filepath"
	"strings"

	"tsrefactor/pkg/types"
)

// IsSupportedFile reports whether path is a TypeScript source file the
// engine operates on. Declaration files are ambient and never refactored.
func IsSupportedFile(path string) bool {
	if strings.HasSuffix(path, ".d.ts") {
		return false
	}
	ext := filepath.Ext(path)
	return ext == ".ts" || ext == ".tsx"
}

// IsRelativeSpecifier reports whether an import specifier refers to a
// project file rather than a package.
func IsRelativeSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// stripExtension removes a .ts or .tsx suffix from an import target.
func stripExtension(path string) string {
	for _, ext := range []string{".tsx", ".ts"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

// RelativeImportPath builds the module specifier that imports toFile from
// fromFile. The result uses forward slashes, drops the extension, and is
// always explicitly relative.
func RelativeImportPath(fromFile, toFile string) string {
	rel, err := filepath.Rel(filepath.Dir(fromFile), toFile)
	if err != nil {
		rel = toFile
	}
	rel = filepath.ToSlash(stripExtension(rel))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// NormalizeUserPath resolves a user-supplied file path to an absolute path.
// Tries the path as given, then relative to the project root, then relative
// to the working directory. The file does not have to exist for the
// root-relative form since operations may create it.
func NormalizeUserPath(root, userPath string) (string, error) {
	if userPath == "" {
		return "", types.NewError(types.UnexpectedIOError, "empty file path")
	}
	if filepath.IsAbs(userPath) {
		return filepath.Clean(userPath), nil
	}

	rooted := filepath.Join(root, userPath)
	if _, err := os.Stat(rooted); err == nil {
		return rooted, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		fromCwd := filepath.Join(cwd, userPath)
		if _, err := os.Stat(fromCwd); err == nil {
			return fromCwd, nil
		}
	}

	// Fall back to root-relative so new files land inside the project.
	return rooted, nil
}

// ResolveImport resolves a relative import specifier found in fromFile to
// the absolute path of the target file. Returns false for bare package
// specifiers and for relative imports that match nothing.
func (p *Project) ResolveImport(fromFile, spec string) (string, bool) {
	if !IsRelativeSpecifier(spec) {
		return "", false
	}
	base := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(spec))

	candidates := []string{}
	if strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".tsx") {
		candidates = append(candidates, base)
	}
	candidates = append(candidates,
		base+".ts",
		base+".tsx",
		filepath.Join(base, "index.ts"),
		filepath.Join(base, "index.tsx"),
	)

	for _, cand := range candidates {
		cand = filepath.Clean(cand)
		if p.Has(cand) {
			return cand, true
		}
	}
	for _, cand := range candidates {
		cand = filepath.Clean(cand)
		if info, err := os.Stat(cand); err == nil && !info.IsDir() {
			return cand, true
		}
	}
	return "", false
}
