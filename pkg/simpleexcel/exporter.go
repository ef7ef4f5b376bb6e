package simpleexcel

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants & Types
// =============================================================================

const (
	SectionDirectionHorizontal = "horizontal"
	SectionDirectionVertical   = "vertical"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DataExporter renders bound data through a YAML report template.
type DataExporter struct {
	template *ReportTemplate
	// data holds data bound to specific section IDs
	data map[string]interface{}
}

// ReportTemplate represents the YAML structure.
type ReportTemplate struct {
	Sheets []SheetTemplate `yaml:"sheets"`
}

// SheetTemplate represents a sheet in the YAML.
type SheetTemplate struct {
	Name     string          `yaml:"name"`
	Sections []SectionConfig `yaml:"sections"`
}

// SectionConfig defines a section of data in a sheet.
type SectionConfig struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Data        interface{}    `yaml:"-"` // Data is bound at runtime
	ShowHeader  bool           `yaml:"show_header"`
	AutoFilter  bool           `yaml:"auto_filter"`
	Direction   string         `yaml:"direction"` // "horizontal" or "vertical"
	Position    string         `yaml:"position"`  // e.g., "A1"
	TitleStyle  *StyleTemplate `yaml:"title_style"`
	HeaderStyle *StyleTemplate `yaml:"header_style"`
	Columns     []ColumnConfig `yaml:"columns"`
}

// ColumnConfig defines a column in a section.
type ColumnConfig struct {
	FieldName string  `yaml:"field_name"` // Struct field name or map key; dots walk nested maps
	Header    string  `yaml:"header"`
	Width     float64 `yaml:"width"`
	NumFmt    int     `yaml:"num_fmt"` // excelize built-in number format id, 0 = general
}

// StyleTemplate defines basic styling.
type StyleTemplate struct {
	Font *FontTemplate `yaml:"font"`
	Fill *FillTemplate `yaml:"fill"`
}

type FontTemplate struct {
	Bold  bool   `yaml:"bold"`
	Color string `yaml:"color"` // Hex color
}

type FillTemplate struct {
	Color string `yaml:"color"` // Hex color
}

// =============================================================================
// Constructors
// =============================================================================

// NewDataExporterFromYAML parses a report template.
func NewDataExporterFromYAML(r io.Reader) (*DataExporter, error) {
	var tmpl ReportTemplate
	if err := yaml.NewDecoder(r).Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(tmpl.Sheets) == 0 {
		return nil, fmt.Errorf("report template has no sheets")
	}
	return &DataExporter{
		template: &tmpl,
		data:     make(map[string]interface{}),
	}, nil
}

// NewDataExporterFromYAMLBytes is NewDataExporterFromYAML for embedded templates.
func NewDataExporterFromYAMLBytes(b []byte) (*DataExporter, error) {
	return NewDataExporterFromYAML(bytes.NewReader(b))
}

// BindSectionData binds data to a section ID.
func (e *DataExporter) BindSectionData(id string, data interface{}) *DataExporter {
	e.data[id] = data
	return e
}

// =============================================================================
// Output
// =============================================================================

// BuildExcel renders every template sheet into a new workbook. The caller closes it.
func (e *DataExporter) BuildExcel() (*excelize.File, error) {
	f := excelize.NewFile()

	for i, sheetTmpl := range e.template.Sheets {
		sheetName := sheetTmpl.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename first sheet: %w", err)
			}
		} else if idx, _ := f.GetSheetIndex(sheetName); idx == -1 {
			if _, err := f.NewSheet(sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", sheetName, err)
			}
		}

		sections := make([]*SectionConfig, len(sheetTmpl.Sections))
		for j := range sheetTmpl.Sections {
			sec := sheetTmpl.Sections[j]
			sec.Data = e.data[sec.ID]
			sections[j] = &sec
		}

		if err := renderSections(f, sheetName, sections); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// ToBytes exports the Excel file to an in-memory byte slice.
func (e *DataExporter) ToBytes() ([]byte, error) {
	f, err := e.BuildExcel()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StreamToResponse writes the Excel file directly to an HTTP response writer.
func (e *DataExporter) StreamToResponse(w http.ResponseWriter, filename string) error {
	f, err := e.BuildExcel()
	if err != nil {
		return err
	}
	defer f.Close()

	w.Header().Set("Content-Type", ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, err = f.WriteTo(w)
	return err
}

// =============================================================================
// Rendering Logic
// =============================================================================

func renderSections(f *excelize.File, sheet string, sections []*SectionConfig) error {
	maxRow := 1            // Next available row for Vertical sections (1-based)
	nextColHorizontal := 1 // Next available col for Horizontal sections (1-based)

	for _, sec := range sections {
		isHorizontal := sec.Direction == SectionDirectionHorizontal

		startCol, startRow := 1, maxRow
		if isHorizontal {
			startCol, startRow = nextColHorizontal, 1
		}
		if sec.Position != "" {
			if c, r, err := excelize.CellNameToCoordinates(sec.Position); err == nil {
				startCol, startRow = c, r
			}
		}
		currentRow := startRow

		if sec.Title != "" {
			cell, _ := excelize.CoordinatesToCellName(startCol, currentRow)
			if err := f.SetCellValue(sheet, cell, sec.Title); err != nil {
				return fmt.Errorf("write title %s: %w", sec.ID, err)
			}
			styleID, err := createStyle(f, sec.TitleStyle, 0)
			if err != nil {
				return err
			}
			endCell := cell
			if len(sec.Columns) > 1 {
				endCell, _ = excelize.CoordinatesToCellName(startCol+len(sec.Columns)-1, currentRow)
				_ = f.MergeCell(sheet, cell, endCell)
			}
			_ = f.SetCellStyle(sheet, cell, endCell, styleID)
			currentRow++
		}

		headerRow := 0
		if sec.ShowHeader {
			headerRow = currentRow
			styleID, err := createStyle(f, sec.HeaderStyle, 0)
			if err != nil {
				return err
			}
			for i, col := range sec.Columns {
				cell, _ := excelize.CoordinatesToCellName(startCol+i, currentRow)
				_ = f.SetCellValue(sheet, cell, col.Header)
				_ = f.SetCellStyle(sheet, cell, cell, styleID)
				if col.Width > 0 {
					colName, _ := excelize.ColumnNumberToName(startCol + i)
					_ = f.SetColWidth(sheet, colName, colName, col.Width)
				}
			}
			currentRow++
		}

		// One style per formatted column, not per cell.
		colStyles := make([]int, len(sec.Columns))
		for i, col := range sec.Columns {
			if col.NumFmt > 0 {
				id, err := createStyle(f, nil, col.NumFmt)
				if err != nil {
					return err
				}
				colStyles[i] = id
			}
		}

		dataVal := reflect.ValueOf(sec.Data)
		if dataVal.Kind() == reflect.Slice {
			for i := 0; i < dataVal.Len(); i++ {
				item := dataVal.Index(i)
				for j, col := range sec.Columns {
					cell, _ := excelize.CoordinatesToCellName(startCol+j, currentRow)
					if err := f.SetCellValue(sheet, cell, extractValue(item, col.FieldName)); err != nil {
						return fmt.Errorf("write %s row %d: %w", sec.ID, i+1, err)
					}
					if colStyles[j] > 0 {
						_ = f.SetCellStyle(sheet, cell, cell, colStyles[j])
					}
				}
				currentRow++
			}
		}

		if sec.AutoFilter && headerRow > 0 && len(sec.Columns) > 0 {
			first, _ := excelize.CoordinatesToCellName(startCol, headerRow)
			last, _ := excelize.CoordinatesToCellName(startCol+len(sec.Columns)-1, max(currentRow-1, headerRow))
			if err := f.AutoFilter(sheet, first+":"+last, nil); err != nil {
				return fmt.Errorf("auto filter %s: %w", sec.ID, err)
			}
		}

		if currentRow > maxRow {
			maxRow = currentRow + 1 // blank row between stacked sections
		}
		nextColHorizontal = startCol + len(sec.Columns) + 1
	}

	return nil
}

// extractValue reads a struct field or map key; nil pointers and missing keys become "".
func extractValue(item reflect.Value, fieldName string) interface{} {
	for item.Kind() == reflect.Ptr || item.Kind() == reflect.Interface {
		if item.IsNil() {
			return ""
		}
		item = item.Elem()
	}

	head, rest, nested := strings.Cut(fieldName, ".")
	var v reflect.Value
	switch item.Kind() {
	case reflect.Struct:
		v = item.FieldByName(head)
	case reflect.Map:
		v = item.MapIndex(reflect.ValueOf(head))
	default:
		return ""
	}
	if !v.IsValid() {
		return ""
	}
	if nested {
		return extractValue(v, rest)
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return v.Interface()
}

func createStyle(f *excelize.File, tmpl *StyleTemplate, numFmt int) (int, error) {
	style := &excelize.Style{NumFmt: numFmt}
	if tmpl != nil && tmpl.Font != nil {
		style.Font = &excelize.Font{
			Bold:  tmpl.Font.Bold,
			Color: strings.TrimPrefix(tmpl.Font.Color, "#"),
		}
	}
	if tmpl != nil && tmpl.Fill != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{strings.TrimPrefix(tmpl.Fill.Color, "#")},
			Pattern: 1,
		}
	}
	id, err := f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	return id, nil
}
