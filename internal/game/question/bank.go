// Package question holds the immutable trivia bank consumed by a match.
package question

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// ErrEmptyBank is returned when a bank would contain no questions.
var ErrEmptyBank = errors.New("question bank is empty")

//go:embed default_bank.yaml
var defaultBankYAML []byte

// Question is a single trivia item.
//
// Invariant: 0 <= CorrectIndex < OptionCount.
type Question struct {
	Text         string              `yaml:"text"`
	Options      [OptionCount]string `yaml:"options"`
	CorrectIndex int                 `yaml:"correct"`
}

// IsCorrect reports whether option is the correct answer.
func (q Question) IsCorrect(option int) bool {
	return option == q.CorrectIndex
}

// Validate checks the question invariants.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text must not be empty")
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("question %q: option %d is empty", q.Text, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
		return fmt.Errorf("question %q: correct index %d out of range [0,%d)", q.Text, q.CorrectIndex, OptionCount)
	}
	return nil
}

// Bank is an immutable ordered sequence of questions.
//
// Invariant: Len() >= 1.
type Bank struct {
	questions []Question
}

// NewBank validates qs and returns a Bank holding a private copy.
//
// Postcondition: returns ErrEmptyBank when qs is empty, or the first
// validation error encountered.
func NewBank(qs []Question) (*Bank, error) {
	if len(qs) == 0 {
		return nil, ErrEmptyBank
	}
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	cp := make([]Question, len(qs))
	copy(cp, qs)
	return &Bank{questions: cp}, nil
}

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// At returns a copy of the question at position i mod Len().
func (b *Bank) At(i int) Question {
	n := len(b.questions)
	i %= n
	if i < 0 {
		i += n
	}
	return b.questions[i]
}

// All returns a copy of every question in order.
func (b *Bank) All() []Question {
	cp := make([]Question, len(b.questions))
	copy(cp, b.questions)
	return cp
}

// bankFile is the YAML document layout.
type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// Parse decodes a YAML bank document.
//
// Postcondition: returns a validated Bank or a non-nil error.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	return NewBank(f.Questions)
}

// Marshal encodes b as a YAML bank document readable by Parse.
func Marshal(b *Bank) ([]byte, error) {
	return yaml.Marshal(bankFile{Questions: b.All()})
}

// LoadFile reads and validates the YAML bank at path.
//
// Precondition: path must name a readable file.
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank %q: %w", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Default returns the built-in ten question bank.
func Default() *Bank {
	b, err := Parse(defaultBankYAML)
	if err != nil {
		panic("question: embedded default bank is invalid: " + err.Error())
	}
	return b
}
