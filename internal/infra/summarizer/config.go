package summarizer

import "fmt"

const (
	// minCharLimit is the minimum allowed character limit for summaries.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed character limit for summaries.
	// Event summaries are bounded downstream anyway, so anything larger
	// is wasted tokens.
	maxCharLimit = 2000
)

// ValidateCharacterLimit validates that the summary character limit is
// within the valid range (100-2000).
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}
