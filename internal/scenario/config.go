package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Kind names a scenario.
type Kind string

const (
	KindCell     Kind = "cell"
	KindAccount  Kind = "account"
	KindCounter  Kind = "counter"
	KindFairness Kind = "fairness"
)

// Kinds lists every known scenario kind.
var Kinds = []Kind{KindCell, KindAccount, KindCounter, KindFairness}

// ErrUnknownKind is returned for a scenario kind that has no runner.
var ErrUnknownKind = errors.New("unknown scenario kind")

// File is the top-level document of a scenario file.
type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario describes one contention run. Only the fields relevant to Kind
// are read.
type Scenario struct {
	Kind Kind `yaml:"kind"`

	// cell
	Producers int `yaml:"producers,omitempty"`
	Items     int `yaml:"items,omitempty"`

	// account, fairness
	Balance      uint64        `yaml:"balance,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	Amount       uint64        `yaml:"amount,omitempty"`
	Fair         bool          `yaml:"fair,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Hold         time.Duration `yaml:"hold,omitempty"`
	Acquisitions int           `yaml:"acquisitions,omitempty"`

	// counter
	Readers    int `yaml:"readers,omitempty"`
	Writers    int `yaml:"writers,omitempty"`
	Increments int `yaml:"increments,omitempty"`
}

// Defaults returns a scenario of the given kind sized like the classic demo
// for that kind.
func Defaults(kind Kind) Scenario {
	switch kind {
	case KindCell:
		return Scenario{Kind: kind, Producers: 1, Items: 10}
	case KindAccount:
		return Scenario{Kind: kind, Balance: 100, Workers: 2, Amount: 80}
	case KindCounter:
		return Scenario{Kind: kind, Readers: 2, Writers: 1, Increments: 1000}
	case KindFairness:
		return Scenario{Kind: kind, Workers: 4, Acquisitions: 2000, Fair: true}
	default:
		return Scenario{Kind: kind}
	}
}

// Validate reports every problem with the scenario at once.
func (s Scenario) Validate() error {
	var merr error
	positive := func(name string, v int) {
		if v <= 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: %s must be positive, got %d", s.Kind, name, v))
		}
	}

	switch s.Kind {
	case KindCell:
		positive("producers", s.Producers)
		positive("items", s.Items)
	case KindAccount:
		positive("workers", s.Workers)
		if s.Amount == 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: amount must be positive", s.Kind))
		}
	case KindCounter:
		positive("writers", s.Writers)
		positive("increments", s.Increments)
		if s.Readers < 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: readers must not be negative, got %d", s.Kind, s.Readers))
		}
	case KindFairness:
		positive("workers", s.Workers)
		positive("acquisitions", s.Acquisitions)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}

	if s.Timeout < 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: timeout must not be negative", s.Kind))
	}
	if s.Hold < 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: hold must not be negative", s.Kind))
	}
	return merr
}

// Validate checks every scenario in the file.
func (f File) Validate() error {
	if len(f.Scenarios) == 0 {
		return errors.New("no scenarios defined")
	}

	var merr error
	for i, s := range f.Scenarios {
		if err := s.Validate(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("scenario %d: %w", i, err))
		}
	}
	return merr
}

// Decode reads and validates a scenario file. Unknown fields are rejected.
func Decode(r io.Reader) (File, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("failed decoding scenario file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("invalid scenario file: %w", err)
	}
	return f, nil
}

// Load reads a scenario file from disk.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed reading %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}
