package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	apperrors "stockstrider/internal/errors"
)

// readWorkbook reads all rows of the first non-empty sheet of an xlsx file.
func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewInputError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q of %s", name, path), err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, apperrors.NewInputError(fmt.Sprintf("%s has no non-empty sheet", path), nil)
}
