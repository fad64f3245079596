// Package export выгружает список файлов в XLSX.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/models"
)

// SheetName - имя листа с записями.
const SheetName = "Usernames"

// ContentType - MIME тип книги XLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"File Name",
	"Filename Username",
	"AI Username",
	"Kind",
	"MIME Type",
	"Size (bytes)",
	"Added At",
}

// WorkspaceXLSX возвращает книгу с одной строкой на запись в порядке списка.
func WorkspaceXLSX(entries []models.Entry) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// Переименовываем лист по умолчанию, чтобы в книге не было пустого Sheet1.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("export: не удалось создать лист: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		aiName := ""
		if e.AIName != nil {
			aiName = *e.AIName
		}

		write(1, e.FileName)
		write(2, e.DisplayName)
		write(3, aiName)
		write(4, string(e.Kind))
		write(5, e.MIMEType)
		write(6, e.FileSize)
		write(7, e.AddedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32)
	_ = f.SetColWidth(SheetName, "B", "C", 28)
	_ = f.SetColWidth(SheetName, "D", "D", 10)
	_ = f.SetColWidth(SheetName, "E", "E", 20)
	_ = f.SetColWidth(SheetName, "F", "F", 14)
	_ = f.SetColWidth(SheetName, "G", "G", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: ошибка записи xlsx: %w", err)
	}

	logger.Log.WithField("rows", len(entries)).
		WithField("elapsed_ms", time.Since(start).Milliseconds()).
		Info("export: xlsx сформирован")
	return buf.Bytes(), nil
}
