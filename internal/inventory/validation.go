package inventory

import (
	"fmt"
	"strings"

	"github.com/novadent/novadent/internal/platform/httpx"
)

var errValidation = httpx.ErrValidation

func validateItem(item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: item name is required", errValidation)
	}
	if !ValidCategory(item.Category) {
		return fmt.Errorf("%w: unknown category %q", errValidation, item.Category)
	}
	if item.CurrentStock < 0 || item.MinStock < 0 || item.MaxStock < 0 {
		return fmt.Errorf("%w: stock levels must be non-negative", errValidation)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must be non-negative", errValidation)
	}
	return nil
}
