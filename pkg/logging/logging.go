// Package logging builds the zap loggers used across the engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a sugared zap logger for the given environment: "dev" gets the
// human-readable development config, anything else the production config.
func New(environment string) (*zap.SugaredLogger, error) {
	var (
		base *zap.Logger
		err  error
	)
	if environment == "dev" {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return base.Sugar(), nil
}

// NewNop returns a logger that discards everything. Components default to it
// when no logger is supplied.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
