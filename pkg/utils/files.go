package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// SourceExt is the extension of quiche source files.
const SourceExt = ".qrs"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// RustOutputPath maps a source file to the .rs file build writes. With an
// empty outDir the output sits next to the source.
func RustOutputPath(src, outDir string) (string, error) {
	fullPath, parentDir, err := GetPathInfo(src)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(fullPath), filepath.Ext(fullPath)) + ".rs"
	if outDir == "" {
		return filepath.Join(parentDir, base), nil
	}
	return filepath.Join(outDir, base), nil
}

// WriteOutput writes generated code, creating the parent directory.
func WriteOutput(path, code string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(code), 0o644)
}
