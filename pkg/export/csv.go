// Package export writes the selected characters to CSV and uploads the file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
)

// DefaultCSVPath is where the report is written unless configured otherwise.
const DefaultCSVPath = "./files/csv/star_wars_top10_characters_sorted_by_height.csv"

// Header is the CSV header row.
var Header = []string{"name", "species", "height", "appearances"}

// WriteCSV writes the header and one row per character. An absent height is an empty field.
func WriteCSV(w io.Writer, chars []swapi.Character) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range chars {
		height := ""
		if c.HasHeight {
			height = strconv.Itoa(c.Height)
		}
		row := []string{c.Name, c.Species, height, strconv.Itoa(c.Appearances)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %q: %w", c.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFile writes chars as CSV to path, creating parent directories.
// The file is written to a temp file first and renamed into place.
func WriteFile(path string, chars []swapi.Character) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, chars); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace csv %s: %w", path, err)
	}
	return nil
}
