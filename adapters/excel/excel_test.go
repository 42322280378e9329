package excel

import (
	"os"
	"path/filepath"
	"testing"

	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func apps() []application.Application {
	return []application.Application{
		{Name: "Alice", Income: 120000, LoanAmount: 250000, ExistingLoans: 1, RepaymentScore: 0.95,
			EmploymentYears: 8, CompanyName: "Microsoft", CollateralValue: 350000},
		{Name: "Bob", Income: 30000, LoanAmount: 200000, ExistingLoans: 4, RepaymentScore: 0.4,
			EmploymentYears: 0.5, CompanyName: "Corner Shop", CollateralValue: 0},
	}
}

func TestApplicationsRoundTripThroughWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.xlsx")
	require.NoError(t, WriteApplications(path, apps()))

	rows, err := NewDataReader(path).ReadApplications()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for i, row := range rows {
		assert.NoError(t, row.Err)
		assert.Equal(t, i+2, row.Line)
		assert.Equal(t, apps()[i], row.Application)
	}
}

func TestReadCSVReportsBadCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Name,Income,Loan_Amount,Existing_Loans,Repayment_Score,Employment_Years,Company_Name,Collateral_Value\n"+
			"Carol,\"85,000\",200000,2,0.7,3,Google,210000\n"+
			",,,,,,,\n"+
			"Dave,lots,100000,1.5,0.8,2,Acme,0\n"), 0o600))

	rows, err := NewDataReader(path).ReadApplications()
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank rows are skipped")

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, 85000.0, rows[0].Application.Income)
	assert.Equal(t, 2, rows[0].Application.ExistingLoans)

	assert.Equal(t, 4, rows[1].Line)
	inputErr, ok := errors.AsInputError(rows[1].Err)
	require.True(t, ok)
	require.Len(t, inputErr.Violations, 2)
	assert.Equal(t, "income", inputErr.Violations[0].Field)
	assert.Equal(t, "existing_loans", inputErr.Violations[1].Field)
}

func TestReadRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,income\nAlice,1\n"), 0o600))

	_, err := NewDataReader(path).ReadApplications()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "loan_amount")
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "absent.xlsx")).ReadApplications()
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestExportWorkbook(t *testing.T) {
	decided := application.NewRecord("APP-20260101-AAAAAAAA", apps()[0])
	decided.Status = stage.StatusCompleted
	decided.Decision = &verdict.Decision{
		Outcome: verdict.Conditional, RiskScore: 0.42,
		Conditions: []string{"Increase collateral by 15%", "Complete manual review"},
		Reasoning:  "Moderate risk",
	}
	failed := application.NewRecord("APP-20260101-BBBBBBBB", apps()[1])
	failed.Status = stage.StatusFailed

	entries := []audit.Entry{{
		Seq: 1, AuditID: "TEST-20260101000000-abcd", ApplicationID: "APP-20260101-AAAAAAAA",
		Decision: verdict.Conditional,
		Report: audit.Report{
			TestScore: 0.87, Passed: true,
			Bias:      audit.BiasCheck{FairnessScore: 90},
			Anomalies: audit.Anomalies{Count: 1, RiskLevel: audit.RiskMedium},
			Timestamp: core.Now(),
		},
	}}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, ExportWorkbook(path, []application.Record{decided, failed}, entries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DecisionsSheet, AuditsSheet}, f.GetSheetList())

	rows, err := f.GetRows(DecisionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "application_id", rows[0][0])
	assert.Equal(t, "APP-20260101-AAAAAAAA", rows[1][0])
	assert.Equal(t, "Conditional", rows[1][6])
	assert.Equal(t, "Increase collateral by 15%\nComplete manual review", rows[1][8])
	assert.Equal(t, "failed", rows[2][5])

	audits, err := f.GetRows(AuditsSheet)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, "TEST-20260101000000-abcd", audits[1][0])
	assert.Equal(t, "MEDIUM", audits[1][8])
}
