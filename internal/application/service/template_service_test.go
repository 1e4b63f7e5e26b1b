package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/credentialing/internal/domain/entity"
)

type mockTemplateSource struct {
	files map[string]*entity.WorkflowTemplate
	dirs  map[string][]*entity.WorkflowTemplate
}

func (m *mockTemplateSource) LoadFile(path string) (*entity.WorkflowTemplate, error) {
	if t, ok := m.files[path]; ok {
		return t, nil
	}
	return nil, errors.New("open " + path + ": no such file or directory")
}

func (m *mockTemplateSource) LoadDir(dir string) ([]*entity.WorkflowTemplate, error) {
	if ts, ok := m.dirs[dir]; ok {
		return ts, nil
	}
	return nil, errors.New("open " + dir + ": no such file or directory")
}

func TestTemplateService_Import(t *testing.T) {
	repo := &mockTemplateRepo{}
	tx := &mockTxManager{}
	svc := NewTemplateService(repo, nil, tx, nopLogger{})

	tmpl := portalTemplate("aetna", 3)
	tmpl.Version = 0
	got, err := svc.Import(context.Background(), tmpl)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}

	invalid := portalTemplate("cigna", 1)
	invalid.PortalURL = ""
	if _, err := svc.Import(context.Background(), invalid); !errors.Is(err, ErrValidation) || !errors.Is(err, entity.ErrTemplateInvalid) {
		t.Errorf("Import(invalid) error = %v, want ErrValidation wrapping ErrTemplateInvalid", err)
	}
	if len(repo.upsertedIDs) != 1 {
		t.Errorf("upserts = %v, invalid template must not be stored", repo.upsertedIDs)
	}

	stored, err := svc.Get(context.Background(), "aetna")
	if err != nil || stored.PayerID != "aetna" {
		t.Errorf("Get() = %v, %v", stored, err)
	}
	if _, err := svc.Get(context.Background(), "cigna"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTemplateService_ImportDir(t *testing.T) {
	broken := portalTemplate("humana", 2)
	broken.Tasks[1].Order = 1

	source := &mockTemplateSource{dirs: map[string][]*entity.WorkflowTemplate{
		"good":      {portalTemplate("aetna", 2), portalTemplate("cigna", 4)},
		"one-bad":   {portalTemplate("aetna", 2), broken},
		"duplicate": {portalTemplate("aetna", 2), portalTemplate("aetna", 3)},
	}}

	tests := []struct {
		dir         string
		wantErr     error
		wantUpserts int
	}{
		{"good", nil, 2},
		{"one-bad", ErrValidation, 0},
		{"duplicate", ErrValidation, 0},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			repo := &mockTemplateRepo{}
			svc := NewTemplateService(repo, source, &mockTxManager{}, nopLogger{})

			templates, err := svc.ImportDir(context.Background(), tt.dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ImportDir() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ImportDir() error = %v", err)
			} else if len(templates) != tt.wantUpserts {
				t.Errorf("templates = %d, want %d", len(templates), tt.wantUpserts)
			}
			if len(repo.upsertedIDs) != tt.wantUpserts {
				t.Errorf("upserts = %v, want %d", repo.upsertedIDs, tt.wantUpserts)
			}
		})
	}
}

func TestTemplateService_ValidateFile(t *testing.T) {
	bad := portalTemplate("aetna", 1)
	bad.Tasks[0].Title = ""
	source := &mockTemplateSource{files: map[string]*entity.WorkflowTemplate{
		"ok.yaml":  portalTemplate("aetna", 2),
		"bad.yaml": bad,
	}}
	svc := NewTemplateService(&mockTemplateRepo{}, source, &mockTxManager{}, nopLogger{})

	if _, err := svc.ValidateFile("ok.yaml"); err != nil {
		t.Errorf("ValidateFile(ok) error = %v", err)
	}
	if _, err := svc.ValidateFile("bad.yaml"); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateFile(bad) error = %v, want ErrValidation", err)
	}
	if _, err := svc.ValidateFile("missing.yaml"); err == nil || errors.Is(err, ErrValidation) {
		t.Errorf("ValidateFile(missing) error = %v, want I/O error", err)
	}
}
