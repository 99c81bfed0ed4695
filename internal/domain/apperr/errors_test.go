package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsMatchTheirSentinel(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("resolve cost: %w", &InvalidIngredientError{IngredientID: "ing-1", Reason: "yield must be in (0, 1]"})
	require.ErrorIs(t, wrapped, ErrValidation)
	require.NotErrorIs(t, wrapped, ErrConflict)

	var invalid *InvalidIngredientError
	require.True(t, errors.As(wrapped, &invalid))
	require.Equal(t, "ing-1", invalid.IngredientID)

	require.ErrorIs(t, Validation("price", "must be positive"), ErrValidation)
	require.ErrorIs(t, Conflict("invoice", "inv-1", "posted", "post"), ErrConflict)
	require.ErrorIs(t, NotFound("category", "cat-1"), ErrNotFound)
	require.EqualError(t, Conflict("invoice", "inv-1", "posted", "post"), "cannot post invoice inv-1 in state posted")
}
