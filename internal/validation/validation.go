// Package validation provides input validation for labstatd: measurement
// rows read from uploaded files and the names that arrive with an upload.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/danilshahmanov/Infotecs/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for names supplied by clients.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
	AllowSpaces  bool

	// AllowPrintable admits every printable rune other than a path
	// separator.
	AllowPrintable bool
}

// FileIDRules returns the rules for file identifiers. Whatever a browser
// sends as an upload file name, such as "results (1).csv", must pass as long
// as it holds no control characters or path separators.
func FileIDRules() NameRules {
	return NameRules{
		MinLength:      1,
		MaxLength:      255,
		AllowDots:      true,
		AllowHyphens:   true,
		AllowUnders:    true,
		AllowSpaces:    true,
		AllowPrintable: true,
	}
}

// AuthorRules returns the rules for author names.
func AuthorRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    128,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
		AllowSpaces:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be blank")
	}

	for i, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	if rules.AllowPrintable && unicode.IsPrint(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	case ' ':
		return rules.AllowSpaces
	}
	return false
}

// ValidateFileID validates a file identifier.
func ValidateFileID(fileID string) error {
	if err := ValidateName(fileID, FileIDRules()); err != nil {
		return fmt.Errorf("file name %q: %v: %w", fileID, err, errors.ErrInvalidName)
	}
	return nil
}

// ValidateAuthor validates the author name attached to an upload.
func ValidateAuthor(author string) error {
	if author == "" {
		return errors.NewMissingField("authorName")
	}
	if err := ValidateName(author, AuthorRules()); err != nil {
		return fmt.Errorf("author name: %v: %w", err, errors.ErrInvalidName)
	}
	return nil
}
