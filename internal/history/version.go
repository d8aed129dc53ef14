package history

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
)

// LogFileName is the log inside a run's archive that names the deployed package.
const LogFileName = "0_run-prd-sync.txt"

var versionPattern = regexp.MustCompile(`airtable_sync_wheel_file_name: airtable_sync-(\d+\.\d+\.\d+)`)

// ExtractVersion returns the package version named in LogFileName of a run log
// archive, or "" when the file or the line is absent.
func ExtractVersion(archive []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("failed to open log archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != LogFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", LogFileName, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", LogFileName, err)
		}
		if m := versionPattern.FindSubmatch(data); m != nil {
			return string(m[1]), nil
		}
		return "", nil
	}
	return "", nil
}
