package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	colMirror = "mirror_name"
	colFile   = "file_name"
)

// ReadRows reads a catalog CSV with a header containing mirror_name and
// file_name columns. Rows missing either value are skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	mirrorCol, fileCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case colMirror:
			mirrorCol = i
		case colFile:
			fileCol = i
		}
	}
	if mirrorCol < 0 || fileCol < 0 {
		return nil, fmt.Errorf("catalog header %q lacks %s/%s columns", strings.Join(header, ","), colMirror, colFile)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
		if mirrorCol >= len(rec) || fileCol >= len(rec) {
			continue
		}
		mirror := strings.TrimSpace(rec[mirrorCol])
		file := strings.TrimSpace(rec[fileCol])
		if mirror == "" || file == "" {
			continue
		}
		rows = append(rows, Row{Mirror: mirror, FileName: file})
	}
	return rows, nil
}

// WriteRows writes rows as a catalog CSV including the header.
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colMirror, colFile}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Mirror, r.FileName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMirrors decodes a JSON array of mirrors.
func ReadMirrors(r io.Reader) ([]Mirror, error) {
	var mirrors []Mirror
	if err := json.NewDecoder(r).Decode(&mirrors); err != nil {
		return nil, fmt.Errorf("decoding mirror list: %w", err)
	}
	return mirrors, nil
}
