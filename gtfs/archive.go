package gtfs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ArchiveName is the file a feed archive is downloaded to inside the feed directory.
const ArchiveName = "gtfs.zip"

// ExtractArchive copies every ValidTables member of the zip at zipPath into destDir,
// flattening any folders inside the archive, and removes the archive afterwards.
// It returns the extracted table names.
func ExtractArchive(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	var extracted []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if !isValidTable(name) {
			continue
		}
		if err := extractMember(f, filepath.Join(destDir, name)); err != nil {
			_ = zr.Close()
			return extracted, err
		}
		extracted = append(extracted, name)
	}
	if err := zr.Close(); err != nil {
		return extracted, err
	}
	if err := os.Remove(zipPath); err != nil {
		return extracted, fmt.Errorf("failed to remove archive: %w", err)
	}
	return extracted, nil
}

func extractMember(f *zip.File, target string) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
	}
	defer func() { _ = r.Close() }()
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

func isValidTable(name string) bool {
	for _, t := range ValidTables {
		if t == name {
			return true
		}
	}
	return false
}
