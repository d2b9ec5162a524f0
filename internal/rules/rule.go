package rules

import (
	"errors"
	"fmt"
)

// Severity indicates how a violation of a rule is treated.
type Severity string

const (
	SeverityError  Severity = "error" // fails the run
	SeverityWarn   Severity = "warn"
	SeverityInfo   Severity = "info"
	SeverityIgnore Severity = "ignore" // reported, never counted
)

// DefaultSeverity applies to rules that do not name one.
const DefaultSeverity = SeverityWarn

// ParseSeverity converts a string to Severity. The empty string yields
// DefaultSeverity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case "":
		return DefaultSeverity, nil
	case SeverityError, SeverityWarn, SeverityInfo, SeverityIgnore:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities from most to least severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarn:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// EndpointCriteria constrains one side of an edge. All set fields must hold.
type EndpointCriteria struct {
	Path               []string `mapstructure:"path" json:"path,omitempty"`
	PathNot            []string `mapstructure:"pathNot" json:"pathNot,omitempty"`
	DependencyTypes    []string `mapstructure:"dependencyTypes" json:"dependencyTypes,omitempty"`
	DependencyTypesNot []string `mapstructure:"dependencyTypesNot" json:"dependencyTypesNot,omitempty"`
	Circular           *bool    `mapstructure:"circular" json:"circular,omitempty"`
	Dynamic            *bool    `mapstructure:"dynamic" json:"dynamic,omitempty"`
}

// IsZero reports whether c places no constraint at all.
func (c EndpointCriteria) IsZero() bool {
	return len(c.Path) == 0 && len(c.PathNot) == 0 &&
		len(c.DependencyTypes) == 0 && len(c.DependencyTypesNot) == 0 &&
		c.Circular == nil && c.Dynamic == nil
}

// Rule is one forbidden or allowed rule as configured.
type Rule struct {
	Name     string           `mapstructure:"name" json:"name"`
	Comment  string           `mapstructure:"comment" json:"comment,omitempty"`
	Severity string           `mapstructure:"severity" json:"severity,omitempty"`
	From     EndpointCriteria `mapstructure:"from" json:"from"`
	To       EndpointCriteria `mapstructure:"to" json:"to"`
}

// ErrConfig is matched by every ConfigError.
var ErrConfig = errors.New("invalid rule configuration")

// ConfigError reports a rule that cannot be compiled.
type ConfigError struct {
	Rule  string // rule name, or list and index for nameless rules
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %s: %s: %v", e.Rule, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
