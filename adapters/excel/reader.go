// Package excel imports loan applications from spreadsheets and exports
// decisions and audits to XLSX workbooks
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"loanverify/domain/application"
	"loanverify/internal/errors"

	"github.com/xuri/excelize/v2"
)

// InputSheet is the sheet applications are read from
const InputSheet = "Sheet1"

// Columns are the expected header names, matching the JSON field names
var Columns = []string{
	"name", "income", "loan_amount", "existing_loans",
	"repayment_score", "employment_years", "company_name", "collateral_value",
}

// Row is one parsed data row. Err is set when a cell could not be parsed;
// range checks are left to Application.Validate.
type Row struct {
	Line        int
	Application application.Application
	Err         error
}

// DataReader reads applications from an .xlsx or .csv file
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader picks the format from the file extension
func NewDataReader(filePath string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadApplications returns every data row in file order
func (r *DataReader) ReadApplications() ([]Row, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(strings.ToUpper(r.fileType)+" file "+r.filePath, err)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput("file must have a header row and at least one data row")
	}
	return parseRows(rows)
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(InputSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", InputSheet)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// parseRows maps cells to fields by header name. Blank rows are skipped.
func parseRows(rows [][]string) ([]Row, error) {
	index := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.InvalidInput("missing columns: " + strings.Join(missing, ", "))
	}

	out := make([]Row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		cell := func(col string) string {
			j := index[col]
			if j >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[j])
		}

		p := &cellParser{}
		app := application.Application{
			Name:            cell("name"),
			Income:          p.float("income", cell("income")),
			LoanAmount:      p.float("loan_amount", cell("loan_amount")),
			ExistingLoans:   p.int("existing_loans", cell("existing_loans")),
			RepaymentScore:  p.float("repayment_score", cell("repayment_score")),
			EmploymentYears: p.float("employment_years", cell("employment_years")),
			CompanyName:     cell("company_name"),
			CollateralValue: p.float("collateral_value", cell("collateral_value")),
		}
		out = append(out, Row{Line: i + 2, Application: app, Err: p.err()})
	}
	return out, nil
}

// cellParser collects every unparseable cell of a row
type cellParser struct {
	violations []errors.FieldViolation
}

func (p *cellParser) float(field, s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		p.violations = append(p.violations, errors.FieldViolation{Field: field, Reason: fmt.Sprintf("is not a number: %q", s)})
	}
	return v
}

func (p *cellParser) int(field, s string) int {
	v := p.float(field, s)
	if v != float64(int(v)) {
		p.violations = append(p.violations, errors.FieldViolation{Field: field, Reason: "must be a whole number"})
	}
	return int(v)
}

func (p *cellParser) err() error {
	if len(p.violations) == 0 {
		return nil
	}
	return errors.NewInputError(p.violations, nil)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
