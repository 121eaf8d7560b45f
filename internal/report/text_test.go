package report

import (
	"strings"
	"testing"

	"company-intel/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestText_Success(t *testing.T) {
	r := &models.Report{
		Company:  "Soulpage IT Solutions",
		Status:   models.StatusCompleted,
		RawData:  `{"news":[]}`,
		Analysis: "Outlook: stable",
	}

	out := Text(r)
	rule := strings.Repeat("=", 50)
	dash := strings.Repeat("-", 50)

	assert.Equal(t, 3, strings.Count(out, rule))
	assert.Equal(t, 4, strings.Count(out, dash))
	assert.Contains(t, out, rule+"\nCOMPANY INTELLIGENCE REPORT\n"+rule)
	assert.Contains(t, out, "Company: Soulpage IT Solutions")
	assert.Contains(t, out, dash+"\nRAW DATA\n"+dash+"\n{\"news\":[]}")
	assert.Contains(t, out, dash+"\nANALYSIS\n"+dash+"\nOutlook: stable")
	assert.True(t, strings.Index(out, "RAW DATA") < strings.Index(out, "ANALYSIS"))
	assert.NotContains(t, out, "ERROR")
}

func TestText_Failure(t *testing.T) {
	r := &models.Report{Company: "Acme", Status: models.StatusCollectionFailed, Error: "Error collecting data for Acme: timeout"}
	rule := strings.Repeat("=", 50)

	assert.Equal(t,
		"\n"+rule+"\nCOMPANY INTELLIGENCE REPORT\n"+rule+"\n\n❌ ERROR: Error collecting data for Acme: timeout\n",
		Text(r))
	assert.NotContains(t, Text(r), "RAW DATA")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Company intelligence report: Acme",
		Subject(&models.Report{Company: "Acme", Status: models.StatusCompleted}))
	assert.Equal(t, "Company intelligence report failed: unknown company (invalid_request)",
		Subject(&models.Report{Status: models.StatusInvalidRequest, Error: "Invalid company name provided"}))
}
