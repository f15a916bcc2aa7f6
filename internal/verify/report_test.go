package verify

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"matchwitness/internal/match"
)

func sealedReport(t *testing.T, mutate func(*match.VerifiedMatchRecord)) *Report {
	t.Helper()
	s := newTestService()
	r := testRecord()
	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)
	if mutate != nil {
		mutate(&v)
	}
	return s.BuildReport(&v, testParticipant, nil)
}

func TestBuildReportCleanRecord(t *testing.T) {
	rep := sealedReport(t, nil)

	assert.Equal(t, "rec-001", rep.RecordID)
	assert.Equal(t, "2-3", rep.Scoreline)
	assert.Equal(t, testParticipant, rep.Participant)
	assert.True(t, rep.Validation.IsValid)
	assert.Equal(t, 100, rep.Validation.Score)
	assert.False(t, rep.Suspicious)
	require.NotNil(t, rep.Reverify)
	assert.True(t, rep.Reverify.StillValid)
	assert.False(t, rep.Degraded)
}

func TestBuildReportTamperedRecord(t *testing.T) {
	rep := sealedReport(t, func(v *match.VerifiedMatchRecord) {
		v.Goals = 7
	})

	require.NotNil(t, rep.Reverify)
	assert.True(t, rep.Reverify.ModificationDetected)
	// Seven goals against a team score of three also fails validation.
	assert.False(t, rep.Validation.IsValid)
	assert.True(t, rep.Suspicious)
}

func TestReportSummary(t *testing.T) {
	rep := sealedReport(t, nil)
	line := rep.Summary()
	assert.Contains(t, line, "[VALID]")
	assert.Contains(t, line, "rec-001")
	assert.Contains(t, line, "score=100")
	assert.NotContains(t, line, "TAMPERED")

	rep = sealedReport(t, func(v *match.VerifiedMatchRecord) { v.Goals = 7 })
	line = rep.Summary()
	assert.Contains(t, line, "[INVALID]")
	assert.Contains(t, line, "TAMPERED")

	errRep := &Report{RecordID: "rec-err", Error: "boom"}
	assert.Contains(t, errRep.Summary(), "[ERROR]")
}

func TestGenerateText(t *testing.T) {
	rep := sealedReport(t, func(v *match.VerifiedMatchRecord) { v.HomeScore = 4 })

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatText).Generate(rep, &buf))

	out := buf.String()
	assert.Contains(t, out, "MATCH INTEGRITY VERIFICATION REPORT")
	assert.Contains(t, out, "rec-001")
	assert.Contains(t, out, "--- Integrity ---")
	assert.Contains(t, out, "Tampered:     true")
	assert.Contains(t, out, "home_score")
}

func TestGenerateJSON(t *testing.T) {
	rep := sealedReport(t, nil)

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatJSON).Generate(rep, &buf))

	var back Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, rep.RecordID, back.RecordID)
	assert.Equal(t, rep.Validation.Score, back.Validation.Score)
}

func TestGenerateYAML(t *testing.T) {
	rep := sealedReport(t, nil)

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatYAML).Generate(rep, &buf))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "rec-001", back["record_id"])
}

func TestGenerateMarkdown(t *testing.T) {
	rep := sealedReport(t, nil)

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatMarkdown).Generate(rep, &buf))

	out := buf.String()
	assert.Contains(t, out, "# Match Integrity Report: rec-001")
	assert.Contains(t, out, "| Trust Score | 100/100 (Excellent) |")
}

func TestGenerateUnknownFormat(t *testing.T) {
	rep := sealedReport(t, nil)
	err := NewReportGenerator("pdf").Generate(rep, &bytes.Buffer{})
	require.Error(t, err)
}

func TestGenerateBatchTextKeepsOrderAndErrorLines(t *testing.T) {
	good := sealedReport(t, nil)
	failed := &Report{RecordID: "rec-err", Error: "record could not be processed: nil stats"}

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatText).GenerateBatch([]*Report{good, failed}, &buf))

	out := buf.String()
	goodIdx := strings.Index(out, "rec-001")
	errIdx := strings.Index(out, "[ERROR] rec-err")
	require.GreaterOrEqual(t, goodIdx, 0)
	require.GreaterOrEqual(t, errIdx, 0)
	assert.Less(t, goodIdx, errIdx, "batch output must keep input order")
}

func TestGenerateBatchJSONIsArray(t *testing.T) {
	reports := []*Report{sealedReport(t, nil), sealedReport(t, nil)}

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatJSON).GenerateBatch(reports, &buf))

	var back []Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Len(t, back, 2)
}

func TestGenerateVerboseIncludesRecommendations(t *testing.T) {
	rep := sealedReport(t, func(v *match.VerifiedMatchRecord) {
		v.DurationMin = 5
	})
	require.NotEmpty(t, rep.Validation.Warnings)

	var buf bytes.Buffer
	require.NoError(t, NewReportGenerator(FormatText).WithVerbose(true).Generate(rep, &buf))
	assert.Contains(t, buf.String(), "fix:")
}
