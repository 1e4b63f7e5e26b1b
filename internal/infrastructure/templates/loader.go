package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed workflow_template.schema.json
var schemaJSON string

var extensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Loader reads workflow templates from YAML or JSON files and checks them
// against the embedded JSON schema
type Loader struct {
	schema *gojsonschema.Schema
	logger *zap.Logger
}

// NewLoader compiles the embedded schema
func NewLoader(logger *zap.Logger) (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template schema: %w", err)
	}
	return &Loader{schema: schema, logger: logger}, nil
}

// LoadFile parses one template file. Schema violations wrap entity.ErrTemplateInvalid.
func (l *Loader) LoadFile(path string) (*entity.WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	tmpl, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Debug("Template file loaded", zap.String("path", path), zap.String("payer_id", tmpl.PayerID))
	return tmpl, nil
}

// LoadDir parses every .yaml, .yml and .json file in dir, in name order.
// Problems from all files are reported together.
func (l *Loader) LoadDir(dir string) ([]*entity.WorkflowTemplate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var templates []*entity.WorkflowTemplate
	var errs []error
	for _, name := range names {
		tmpl, err := l.LoadFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		templates = append(templates, tmpl)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	l.logger.Info("Template directory loaded", zap.String("dir", dir), zap.Int("templates", len(templates)))
	return templates, nil
}

// Parse validates a YAML or JSON document against the schema and decodes it
func (l *Loader) Parse(data []byte) (*entity.WorkflowTemplate, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrTemplateInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", entity.ErrTemplateInvalid)
	}

	result, err := l.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrTemplateInvalid, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("%w: %s", entity.ErrTemplateInvalid, strings.Join(problems, "; "))
	}

	var tmpl entity.WorkflowTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrTemplateInvalid, err)
	}
	return &tmpl, nil
}

// Verify interface compliance
var _ port.TemplateSource = (*Loader)(nil)
