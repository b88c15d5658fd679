package ai

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrModelUnavailable is returned when a requested model is not offered to the credential.
var ErrModelUnavailable = errors.New("model is not available for this api key")

// SelectModel picks requested from models, or the first model when nothing was requested.
func SelectModel(models []string, requested string) (string, error) {
	if len(models) == 0 {
		return "", Fatal("select model", errors.New("no models available"))
	}

	requested = strings.TrimPrefix(strings.TrimSpace(requested), "models/")
	if requested == "" {
		return models[0], nil
	}

	if !slices.Contains(models, requested) {
		return "", fmt.Errorf("%w: %q", ErrModelUnavailable, requested)
	}

	return requested, nil
}
