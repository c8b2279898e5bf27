package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateReconstructionRequest checks the OSEM parameters. It is independent
// of the window selection and runs before ResolveReconstructionInputs.
func ValidateReconstructionRequest(iterations, subsets int) error {
	if iterations <= 0 || subsets <= 0 {
		return fmt.Errorf("%w: iterations=%d subsets=%d", ErrInvalidParameters, iterations, subsets)
	}
	return nil
}

// ParseReconstructionRequest parses the iteration and subset counts as typed
// by the user. Text that is not an integer fails like a non-positive count.
func ParseReconstructionRequest(iterations, subsets string) (int, int, error) {
	it, err := strconv.Atoi(strings.TrimSpace(iterations))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: iterations %q", ErrInvalidParameters, iterations)
	}
	sub, err := strconv.Atoi(strings.TrimSpace(subsets))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: subsets %q", ErrInvalidParameters, subsets)
	}
	if err := ValidateReconstructionRequest(it, sub); err != nil {
		return 0, 0, err
	}
	return it, sub, nil
}
