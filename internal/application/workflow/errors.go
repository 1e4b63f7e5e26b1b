package workflow

import (
	"fmt"

	"github.com/garyjia/credentialing/internal/domain/entity"
)

// FieldRequiredError reports a field that must be present to enter a status
type FieldRequiredError struct {
	Field  string
	Target entity.ApplicationStatus
}

func (e *FieldRequiredError) Error() string {
	return fmt.Sprintf("%s is required to enter %s", e.Field, e.Target)
}
