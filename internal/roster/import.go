package roster

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// header cells skipped when they head the first column of a sheet
var headerNames = map[string]bool{
	"姓名":   true,
	"name": true,
}

// ReadNames reads names from a roster file: newline or comma separated for
// text files, or the first column of the first sheet for .xlsx workbooks.
// Names are trimmed; blanks are skipped.
func ReadNames(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readSheetNames(path)
	default:
		return readTextNames(path)
	}
}

func readTextNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\ufeff")
		for _, field := range strings.FieldsFunc(line, isSeparator) {
			if name := strings.TrimSpace(field); name != "" {
				names = append(names, name)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading roster file: %w", err)
	}
	return names, nil
}

func isSeparator(r rune) bool {
	return r == ',' || r == '，' || r == '、'
}

func readSheetNames(path string) ([]string, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet: %w", err)
	}

	var names []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if i == 0 && headerNames[strings.ToLower(name)] {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
