package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Autocomplete lists remembered from data entry
const (
	ListPlates       = "plates"
	ListDrivers      = "drivers"
	ListCarriers     = "carriers"
	ListDestinations = "destinations"
	ListClients      = "clients"
)

// MaxPreferenceEntries entries kept per list, most recent first
const MaxPreferenceEntries = 50

// ErrUnknownList the list name is not one of the autocomplete lists
var ErrUnknownList = errors.New("unknown preference list")

var knownLists = map[string]bool{
	ListPlates:       true,
	ListDrivers:      true,
	ListCarriers:     true,
	ListDestinations: true,
	ListClients:      true,
}

// PreferenceStore autocomplete lists kept in the KV store without expiry
type PreferenceStore struct {
	kv     KVStore
	prefix string
	logger *zap.Logger
}

// NewPreferenceStore creates a preference store; keys are "{prefix}:prefs:{list}"
func NewPreferenceStore(kv KVStore, prefix string, logger *zap.Logger) *PreferenceStore {
	return &PreferenceStore{kv: kv, prefix: prefix, logger: logger}
}

func (p *PreferenceStore) key(list string) string {
	return fmt.Sprintf("%s:prefs:%s", p.prefix, list)
}

// List entries of list, most recent first; empty when nothing was remembered
func (p *PreferenceStore) List(ctx context.Context, list string) ([]string, error) {
	if !knownLists[list] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, list)
	}
	var values []string
	err := getJSON(ctx, p.kv, p.key(list), &values)
	switch {
	case errors.Is(err, ErrCacheMiss):
		return []string{}, nil
	case errors.Is(err, ErrCorruptValue):
		p.discardCorrupt(list, err)
		return []string{}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read preference list %s: %w", list, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Remember moves value to the front of list, dropping case-insensitive duplicates.
// The list is rewritten atomically so concurrent writers do not lose entries.
func (p *PreferenceStore) Remember(ctx context.Context, list, value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return p.List(ctx, list)
	}
	if !knownLists[list] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, list)
	}

	var values []string
	_, err := p.kv.Update(ctx, p.key(list), 0, func(current string, found bool) (string, error) {
		var existing []string
		if found {
			if err := json.Unmarshal([]byte(current), &existing); err != nil {
				p.discardCorrupt(list, err)
				existing = nil
			}
		}

		values = []string{value}
		for _, v := range existing {
			if !strings.EqualFold(v, value) {
				values = append(values, v)
			}
		}
		if len(values) > MaxPreferenceEntries {
			values = values[:MaxPreferenceEntries]
		}

		raw, err := json.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("failed to marshal preference list: %w", err)
		}
		return string(raw), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write preference list %s: %w", list, err)
	}
	return values, nil
}

func (p *PreferenceStore) discardCorrupt(list string, err error) {
	p.logger.Warn("Discarding corrupt preference list",
		zap.String("list", list),
		zap.Error(err),
	)
}
