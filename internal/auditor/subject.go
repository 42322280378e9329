package auditor

import (
	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"
	"loanverify/internal/pipeline"
)

// Subject is a decided application as the auditor sees it
type Subject struct {
	ApplicationID core.ApplicationID
	Application   application.Application
	Decision      verdict.Outcome
	Confidence    float64
	Reasoning     string
	Opinions      []audit.Opinion
}

// SubjectFromRecord builds a subject from a fresh pipeline run
func SubjectFromRecord(rec *pipeline.Record) Subject {
	return newSubject(rec.ApplicationID, rec.Application, rec.Verdicts, rec.Critique, rec.Detail)
}

// SubjectFromStored rebuilds a subject from a stored application for a
// retroactive audit. Undecided applications cannot be audited.
func SubjectFromStored(rec application.Record) (Subject, error) {
	if !rec.IsDecided() {
		return Subject{}, errors.WithCode(errors.CodeInvalidInput,
			errors.Wrapf(core.ErrNotDecided, "application %s", rec.ID))
	}

	var (
		v verdict.Verdicts
		c verdict.CritiqueResult
	)
	payloads := []struct {
		name stage.StageName
		out  interface{}
	}{
		{stage.StageCredit, &v.Credit},
		{stage.StageEmployment, &v.Employment},
		{stage.StageCollateral, &v.Collateral},
		{stage.StageCritique, &c},
	}
	for _, p := range payloads {
		if _, err := rec.StagePayload(p.name, p.out); err != nil {
			return Subject{}, errors.Wrapf(err, "decode %s result of %s", p.name, rec.ID)
		}
	}
	return newSubject(rec.ID, rec.Application, v, c, *rec.Decision), nil
}

func newSubject(id core.ApplicationID, app application.Application, v verdict.Verdicts, c verdict.CritiqueResult, d verdict.Decision) Subject {
	return Subject{
		ApplicationID: id,
		Application:   app,
		Decision:      d.Outcome,
		Confidence:    c.ConfidenceScore,
		Reasoning:     d.Reasoning,
		Opinions:      Opinions(v, c, d),
	}
}

// Opinions maps each stage to a decision-like stance: verification stages
// approve when they pass, critique approves when it found nothing, and the
// decision stage reports its outcome with the critique confidence
func Opinions(v verdict.Verdicts, c verdict.CritiqueResult, d verdict.Decision) []audit.Opinion {
	stance := func(passed bool) verdict.Outcome {
		if passed {
			return verdict.Approved
		}
		return verdict.Rejected
	}
	critique := verdict.Approved
	if c.HasInconsistencies() {
		critique = verdict.Conditional
	}
	return []audit.Opinion{
		{Stage: stage.StageCredit.String(), Decision: stance(v.Credit.Passed), Confidence: v.Credit.Confidence},
		{Stage: stage.StageEmployment.String(), Decision: stance(v.Employment.Passed), Confidence: v.Employment.Confidence},
		{Stage: stage.StageCollateral.String(), Decision: stance(v.Collateral.Passed), Confidence: v.Collateral.Confidence},
		{Stage: stage.StageCritique.String(), Decision: critique, Confidence: c.ConfidenceScore},
		{Stage: stage.StageDecision.String(), Decision: d.Outcome, Confidence: c.ConfidenceScore},
	}
}
