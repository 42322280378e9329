package excel

import (
	"strings"

	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Export sheets
const (
	DecisionsSheet = "Decisions"
	AuditsSheet    = "Audits"
)

var decisionHeaders = []interface{}{
	"application_id", "applicant", "income", "loan_amount", "collateral_value",
	"status", "decision", "risk_score", "conditions", "reasoning", "created_at",
}

var auditHeaders = []interface{}{
	"test_id", "application_id", "decision", "test_score", "passed",
	"accuracy", "fairness_score", "anomalies", "risk_level", "timestamp",
}

// WriteApplications writes applications to Sheet1 in the import layout
func WriteApplications(path string, apps []application.Application) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	rows := [][]interface{}{header}
	for _, a := range apps {
		rows = append(rows, []interface{}{
			a.Name, a.Income, a.LoanAmount, a.ExistingLoans,
			a.RepaymentScore, a.EmploymentYears, a.CompanyName, a.CollateralValue,
		})
	}
	if err := writeRows(f, InputSheet, rows); err != nil {
		return err
	}
	return save(f, path)
}

// ExportWorkbook writes the Decisions and Audits sheets
func ExportWorkbook(path string, records []application.Record, audits []audit.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	decisions := [][]interface{}{decisionHeaders}
	for _, r := range records {
		row := []interface{}{
			r.ID.String(), r.ApplicantName, r.Application.Income, r.Application.LoanAmount,
			r.Application.CollateralValue, string(r.Status), "", nil, "", "", r.CreatedAt.String(),
		}
		if d := r.Decision; d != nil {
			row[6] = string(d.Outcome)
			row[7] = d.RiskScore
			row[8] = strings.Join(d.Conditions, "\n")
			row[9] = d.Reasoning
		}
		decisions = append(decisions, row)
	}

	audited := [][]interface{}{auditHeaders}
	for _, e := range audits {
		rep := e.Report
		audited = append(audited, []interface{}{
			e.AuditID.String(), e.ApplicationID.String(), string(e.Decision), rep.TestScore, rep.Passed,
			rep.Validation.Accuracy, rep.Bias.FairnessScore, rep.Anomalies.Count,
			string(rep.Anomalies.RiskLevel), rep.Timestamp.String(),
		})
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{{DecisionsSheet, decisions}, {AuditsSheet, audited}} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return errors.Wrapf(err, "failed to create %s sheet", sheet.name)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet(InputSheet); err != nil {
		return errors.Wrap(err, "failed to drop default sheet")
	}
	if idx, err := f.GetSheetIndex(DecisionsSheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	return save(f, path)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "invalid cell")
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, i+1)
		}
	}
	return nil
}

func save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}
