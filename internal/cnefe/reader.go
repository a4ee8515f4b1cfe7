package cnefe

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DiscoverFiles recursively finds CNEFE record files (.txt) under root and
// returns their paths in deterministic order.
func DiscoverFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "cnefe: walk %s", root)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadFile parses every record in one fixed-width CNEFE file. IBGE ships
// these files in ISO-8859-1; lines are decoded to UTF-8 before parsing.
// Malformed lines are logged and skipped, never fatal for the file.
func ReadFile(path string) ([]*AddressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cnefe: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var recs []*AddressRecord
	lineNo := 0
	skipped := 0
	for sc.Scan() {
		lineNo++
		rec, err := ParseLine(sc.Text())
		if err != nil {
			skipped++
			zap.L().Warn("cnefe: skipping malformed record",
				zap.String("file", path),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "cnefe: read %s", path)
	}

	if skipped > 0 {
		zap.L().Info("cnefe: file parsed with skips",
			zap.String("file", path),
			zap.Int("records", len(recs)),
			zap.Int("skipped", skipped),
		)
	}
	return recs, nil
}
