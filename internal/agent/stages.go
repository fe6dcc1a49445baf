package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/intake"
	"github.com/dusk-indust/paycheck/internal/orchestrator"
)

var hundred = decimal.NewFromInt(100)

// errMissing reports a finding an earlier stage should have produced.
func errMissing(f orchestrator.Field) error {
	return fmt.Errorf("finding %s not available", f)
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// documentIntake confirms the three source documents are present.
type documentIntake struct{}

func (documentIntake) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Receiving %d documents for %s", in.Snapshot.Documents.Count(), in.Snapshot.Organisation.Name)
}

func (documentIntake) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	docs := in.Snapshot.Documents
	if err := docs.Validate(); err != nil {
		return nil, err
	}
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Received contract %s, worksheet %s and payslip %s", docs.Contract, docs.Worksheet, docs.Payslip),
	}, nil
}

// contractReader takes the classification from the employment contract.
type contractReader struct{}

func (contractReader) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Reading employment contract %s", in.Snapshot.Documents.Contract)
}

func (contractReader) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	emp := in.Snapshot.Employment
	class := strings.TrimSpace(emp.Classification)
	if class == "" {
		return nil, errors.New("contract has no classification")
	}
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Contract: %s %s, classified %s", emp.Type, emp.Role, class),
		Patch:   orchestrator.Findings{Classification: &class},
	}, nil
}

// worksheetReader takes ordinary and public holiday hours from the
// reviewed worksheet fields.
type worksheetReader struct{}

func (worksheetReader) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Reading worksheet %s for %s", in.Snapshot.Documents.Worksheet, in.Snapshot.Period)
}

func (worksheetReader) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	snap := in.Snapshot
	hours, err := snap.Decimal(intake.FieldOrdinaryHours)
	if err != nil {
		return nil, err
	}
	if hours.IsNegative() {
		return nil, fmt.Errorf("ordinary hours %s are negative", hours)
	}

	ph := decimal.Zero
	if _, ok := snap.Field(intake.FieldPublicHolidayHours); ok {
		if ph, err = snap.Decimal(intake.FieldPublicHolidayHours); err != nil {
			return nil, err
		}
	}
	switch {
	case ph.IsNegative():
		return nil, fmt.Errorf("public holiday hours %s are negative", ph)
	case ph.IsPositive() && !snap.PublicHoliday:
		return nil, fmt.Errorf("worksheet reports %s public holiday hours but the period has no public holiday", ph)
	}

	summary := fmt.Sprintf("Worksheet: %s ordinary hours over %d days", hours, snap.Period.Days())
	if ph.IsPositive() {
		summary += fmt.Sprintf(", %s public holiday hours", ph)
	}
	return &orchestrator.StageOutput{
		Summary: summary,
		Patch:   orchestrator.Findings{Hours: &hours, PublicHolidayHours: &ph},
	}, nil
}

// payslipReader takes gross pay from the reviewed payslip fields.
type payslipReader struct{}

func (payslipReader) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Reading payslip %s", in.Snapshot.Documents.Payslip)
}

func (payslipReader) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	paid, err := in.Snapshot.Decimal(intake.FieldGrossPay)
	if err != nil {
		return nil, err
	}
	if paid.IsNegative() {
		return nil, fmt.Errorf("gross pay %s is negative", paid)
	}
	paid = paid.Round(2)
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Payslip: gross pay %s", money(paid)),
		Patch:   orchestrator.Findings{Paid: &paid},
	}, nil
}

// awardMatcher finds the award covering the organisation and jurisdiction.
type awardMatcher struct {
	cfg *config.Config
}

func (awardMatcher) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Matching award for %s in %s", in.Snapshot.Organisation.Type, in.Snapshot.Jurisdiction)
}

func (s awardMatcher) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	snap := in.Snapshot
	award, ok := s.cfg.FindAward(snap.Organisation.Type, snap.Jurisdiction)
	if !ok {
		return nil, fmt.Errorf("no award covers %s in %s", snap.Organisation.Type, snap.Jurisdiction)
	}
	code := award.Code
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Matched %s (%s)", award.Name, award.Code),
		Patch:   orchestrator.Findings{Award: &code},
	}, nil
}

// classificationChecker looks up the base rate for the classification
// under the matched award.
type classificationChecker struct {
	cfg *config.Config
}

func (classificationChecker) Announce(in orchestrator.StageInput) string {
	return fmt.Sprintf("Checking classification %s", in.Snapshot.Employment.Classification)
}

func (s classificationChecker) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	f := in.Findings
	if f.Award == nil {
		return nil, errMissing(orchestrator.FieldAward)
	}
	if f.Classification == nil {
		return nil, errMissing(orchestrator.FieldClassification)
	}

	award, ok := s.awardByCode(*f.Award)
	if !ok {
		return nil, fmt.Errorf("award %s is not configured", *f.Award)
	}
	rate, ok := award.Rate(*f.Classification)
	if !ok {
		return nil, fmt.Errorf("%s has no rate for classification %q", award.Code, *f.Classification)
	}
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("%s base rate %s/h", *f.Classification, money(rate)),
		Patch:   orchestrator.Findings{Rate: &rate},
	}, nil
}

func (s classificationChecker) awardByCode(code string) (config.Award, bool) {
	for _, a := range s.cfg.Awards {
		if a.Code == code {
			return a, true
		}
	}
	return config.Award{}, false
}

// entitlementCalculator prices the worked hours at the award rate.
type entitlementCalculator struct {
	cfg *config.Config
}

func (entitlementCalculator) Announce(orchestrator.StageInput) string {
	return "Calculating entitlement"
}

func (s entitlementCalculator) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	f := in.Findings
	if f.Hours == nil {
		return nil, errMissing(orchestrator.FieldHours)
	}
	if f.Rate == nil {
		return nil, errMissing(orchestrator.FieldRate)
	}
	ph := decimal.Zero
	if f.PublicHolidayHours != nil {
		ph = *f.PublicHolidayHours
	}

	ordinary := f.Hours.Mul(*f.Rate)
	loading := ph.Mul(*f.Rate).Mul(s.cfg.PublicHolidayLoading)
	entitled := ordinary.Add(loading).Round(2)

	summary := fmt.Sprintf("Entitlement: %s h × %s = %s", f.Hours, money(*f.Rate), money(entitled))
	if ph.IsPositive() {
		summary = fmt.Sprintf("Entitlement: %s h × %s + %s public holiday h × %s × %s = %s",
			f.Hours, money(*f.Rate), ph, money(*f.Rate), s.cfg.PublicHolidayLoading, money(entitled))
	}
	return &orchestrator.StageOutput{
		Summary: summary,
		Patch:   orchestrator.Findings{Entitled: &entitled},
	}, nil
}

// detector compares what was paid with the entitlement.
type detector struct {
	cfg *config.Config
}

func (detector) Announce(orchestrator.StageInput) string {
	return "Comparing pay against entitlement"
}

func (s detector) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	f := in.Findings
	if f.Paid == nil {
		return nil, errMissing(orchestrator.FieldPaid)
	}
	if f.Entitled == nil {
		return nil, errMissing(orchestrator.FieldEntitled)
	}

	diff := f.Paid.Sub(*f.Entitled)
	var summary string
	switch {
	case diff.Abs().LessThanOrEqual(s.cfg.Tolerance):
		summary = "No discrepancy found"
	case diff.IsNegative():
		summary = fmt.Sprintf("Underpayment of %s detected", money(diff.Abs()))
	default:
		summary = fmt.Sprintf("Overpayment of %s detected", money(diff))
	}
	return &orchestrator.StageOutput{
		Summary: summary,
		Patch:   orchestrator.Findings{Difference: &diff},
	}, nil
}

// anomalyScorer rates how far the pay gap sits from normal rounding noise.
type anomalyScorer struct {
	cfg *config.Config
}

func (anomalyScorer) Announce(orchestrator.StageInput) string {
	return "Scoring anomaly"
}

func (s anomalyScorer) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	f := in.Findings
	if f.Difference == nil {
		return nil, errMissing(orchestrator.FieldDifference)
	}
	if f.Entitled == nil {
		return nil, errMissing(orchestrator.FieldEntitled)
	}

	score, pct := AnomalyScore(*f.Difference, *f.Entitled, s.cfg.Tolerance, s.cfg.AnomalyScale)
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Anomaly score %d/100 (%s%% gap)", score, pct.StringFixed(2)),
		Patch:   orchestrator.Findings{AnomalyScore: &score},
	}, nil
}

// AnomalyScore maps a pay gap to [0,100]: round(100·(1−e^(−pct/scale)))
// where pct is the gap as a percentage of the entitlement. A gap within
// tolerance scores 0; any gap against a zero entitlement scores 100.
func AnomalyScore(diff, entitled, tolerance decimal.Decimal, scale float64) (int, decimal.Decimal) {
	if diff.Abs().LessThanOrEqual(tolerance) {
		return 0, decimal.Zero
	}
	if !entitled.IsPositive() {
		return 100, hundred
	}
	pct := diff.Abs().Div(entitled).Mul(hundred)
	score := math.Round(100 * (1 - math.Exp(-pct.InexactFloat64()/scale)))
	return int(max(0, min(100, score))), pct
}

// explanation weighs the score by how much of the intake was confirmed in
// review and writes the finding up.
type explanation struct {
	cfg *config.Config
}

func (explanation) Announce(orchestrator.StageInput) string {
	return "Preparing explanation"
}

func (s explanation) Execute(_ context.Context, in orchestrator.StageInput) (*orchestrator.StageOutput, error) {
	f := in.Findings
	switch {
	case f.Paid == nil:
		return nil, errMissing(orchestrator.FieldPaid)
	case f.Entitled == nil:
		return nil, errMissing(orchestrator.FieldEntitled)
	case f.Difference == nil:
		return nil, errMissing(orchestrator.FieldDifference)
	case f.AnomalyScore == nil:
		return nil, errMissing(orchestrator.FieldAnomalyScore)
	}

	discrepancy := f.Difference.Abs().GreaterThan(s.cfg.Tolerance)
	confidence := Confidence(in.Snapshot.Coverage, *f.AnomalyScore, discrepancy)
	text := explain(in.Snapshot, f, discrepancy)
	return &orchestrator.StageOutput{
		Summary: fmt.Sprintf("Confidence %.2f", confidence),
		Patch:   orchestrator.Findings{Confidence: &confidence, Explanation: &text},
	}, nil
}

// Confidence is the review coverage, weighted by the anomaly score when a
// discrepancy was found, rounded to two places.
func Confidence(coverage float64, score int, discrepancy bool) float64 {
	c := coverage
	if discrepancy {
		c = coverage * float64(score) / 100
	}
	return math.Round(max(0, min(1, c))*100) / 100
}

func explain(snap intake.Snapshot, f orchestrator.Findings, discrepancy bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paid %s against an entitlement of %s", money(*f.Paid), money(*f.Entitled))
	if f.Hours != nil && f.Rate != nil {
		fmt.Fprintf(&b, " for %s hours at %s", f.Hours, money(*f.Rate))
	}
	if f.Classification != nil && f.Award != nil {
		fmt.Fprintf(&b, " (%s, %s)", *f.Classification, *f.Award)
	}
	fmt.Fprintf(&b, " in the period %s", snap.Period)
	switch {
	case !discrepancy:
		b.WriteString(": no discrepancy.")
	case f.Difference.IsNegative():
		fmt.Fprintf(&b, ": underpaid by %s.", money(f.Difference.Abs()))
	default:
		fmt.Fprintf(&b, ": overpaid by %s.", money(*f.Difference))
	}
	return b.String()
}
