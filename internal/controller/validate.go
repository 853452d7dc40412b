package controller

import (
	"context"
	"fmt"
)

// validate checks a configuration against the provider's schema.
func (c *Controller[R, ID]) validate(ctx context.Context, cfg config) error {
	coll := c.access.Collection

	if len(cfg.sortTerms) == 0 {
		return &ConfigError{
			Code:       ErrCodeNoSortTerms,
			Message:    "at least one sort term is required",
			Collection: coll,
		}
	}
	if cfg.keyPath == "" {
		return &ConfigError{
			Code:       ErrCodeNoSectionKeyPath,
			Message:    "section key path is empty",
			Collection: coll,
		}
	}
	if first := cfg.sortTerms[0].KeyPath; first != cfg.keyPath {
		return &ConfigError{
			Code:       ErrCodeSortTermMismatch,
			Message:    fmt.Sprintf("first sort term sorts by %q, not by the section key path", first),
			Collection: coll,
			KeyPath:    cfg.keyPath,
			Details: map[string]string{
				"sort_key_path": first,
			},
		}
	}

	schema, err := c.provider.Schema(ctx, coll)
	if err != nil {
		return &ConfigError{
			Code:       ErrCodeSchemaUnavailable,
			Message:    "provider has no schema for the collection",
			Collection: coll,
			KeyPath:    cfg.keyPath,
			Err:        err,
		}
	}

	got, ok := schema.Field(cfg.keyPath)
	if !ok {
		return &ConfigError{
			Code:       ErrCodeInvalidKeyPath,
			Message:    "section key path is not an attribute of the collection",
			Collection: coll,
			KeyPath:    cfg.keyPath,
		}
	}
	if got != cfg.kind {
		return &ConfigError{
			Code:       ErrCodeKeyTypeMismatch,
			Message:    fmt.Sprintf("section key attribute is %s, declared %s", got, cfg.kind),
			Collection: coll,
			KeyPath:    cfg.keyPath,
			Details: map[string]string{
				"declared": cfg.kind.String(),
				"schema":   got.String(),
			},
		}
	}
	return nil
}
