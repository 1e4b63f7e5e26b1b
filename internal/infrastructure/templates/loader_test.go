package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validYAML = `
payer_id: aetna
payer_name: Aetna
category: portal_submission
portal_url: https://portal.example
contact:
  name: Provider Services
  phone: 555-0100
typical_approval_days: 45
tasks:
  - title: Attest CAQH
    order: 1
    estimated_days: 2
  - title: Submit application
    description: Portal form
    order: 2
    estimated_days: 3
`

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(zap.NewNop())
	require.NoError(t, err)
	return l
}

func TestLoader_Parse(t *testing.T) {
	l := newTestLoader(t)

	tmpl, err := l.Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "aetna", tmpl.PayerID)
	assert.Equal(t, entity.CategoryPortalSubmission, tmpl.Category)
	assert.Equal(t, "555-0100", tmpl.Contact.Phone)
	assert.Equal(t, 45, tmpl.TypicalApprovalDays)
	require.Len(t, tmpl.Tasks, 2)
	assert.Equal(t, "Portal form", tmpl.Tasks[1].Description)
	assert.Equal(t, 3, tmpl.Tasks[1].EstimatedDays)
	assert.NoError(t, tmpl.Validate())
}

func TestLoader_ParseJSON(t *testing.T) {
	l := newTestLoader(t)

	doc := `{"payer_id":"medicare","category":"instant_network","tasks":[{"title":"Link in PECOS","order":1}]}`
	tmpl, err := l.Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "medicare", tmpl.PayerID)
	assert.Equal(t, 0, tmpl.Tasks[0].EstimatedDays)
}

func TestLoader_ParseRejects(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"not yaml", "payer_id: [unterminated"},
		{"missing payer", "category: instant_network\ntasks:\n  - {title: a, order: 1}\n"},
		{"unknown category", "payer_id: x\ncategory: fax\ntasks:\n  - {title: a, order: 1}\n"},
		{"no tasks", "payer_id: x\ncategory: instant_network\ntasks: []\n"},
		{"negative days", "payer_id: x\ncategory: instant_network\ntasks:\n  - {title: a, order: 1, estimated_days: -1}\n"},
		{"unknown field", "payer_id: x\ncategory: instant_network\nfax: 555\ntasks:\n  - {title: a, order: 1}\n"},
		{"string order", "payer_id: x\ncategory: instant_network\ntasks:\n  - {title: a, order: first}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrTemplateInvalid), "error = %v", err)
		})
	}
}

func TestLoader_LoadDir(t *testing.T) {
	l := newTestLoader(t)
	dir := t.TempDir()

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yml", "payer_id: cigna\ncategory: instant_network\ntasks:\n  - {title: a, order: 1}\n")
	write("a.yaml", validYAML)
	write("README.md", "# not a template")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	templates, err := l.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "aetna", templates[0].PayerID)
	assert.Equal(t, "cigna", templates[1].PayerID)

	write("c.json", `{"payer_id": 7}`)
	_, err = l.LoadDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrTemplateInvalid)
	assert.Contains(t, err.Error(), "c.json")

	_, err = l.LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoader_SampleTemplates(t *testing.T) {
	l := newTestLoader(t)

	templates, err := l.LoadDir(filepath.Join("..", "..", "..", "templates"))
	require.NoError(t, err)
	require.NotEmpty(t, templates)
	for _, tmpl := range templates {
		assert.NoError(t, tmpl.Validate(), tmpl.PayerID)
	}
}
