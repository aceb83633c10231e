package domain

import (
	"errors"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

func errInvalid(msg string) error {
	return orcherr.New(orcherr.InputInvalid, "domain.validate", errors.New(msg))
}
