package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// AddressRegex validates ledger account addresses.
	AddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{2,64}$`)

	// CategoryRegex validates category slugs.
	CategoryRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// ValidateAddress validates a ledger address.
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if !AddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format")
	}
	return nil
}

// ValidateTitle validates a stream title.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > 140 {
		return fmt.Errorf("title is too long (max 140 characters)")
	}
	return nil
}

// ValidateCategory validates a category slug.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if len(category) > 64 {
		return fmt.Errorf("category is too long (max 64 characters)")
	}
	if !CategoryRegex.MatchString(category) {
		return fmt.Errorf("category may only contain lowercase letters, digits, '-' and '_'")
	}
	return nil
}

// ValidateTags validates the tag list.
func ValidateTags(tags []string) error {
	if len(tags) > 16 {
		return fmt.Errorf("too many tags (max 16)")
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags must not be empty")
		}
		if utf8.RuneCountInString(tag) > 32 {
			return fmt.Errorf("tag %q is too long (max 32 characters)", tag)
		}
	}
	return nil
}
