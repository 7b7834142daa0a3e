package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{ErrAccountNotFound, KindNotFound},
		{ErrNoEntries, KindNotFound},
		{ErrAlreadyCheckedIn, KindAlreadyDone},
		{ErrAlreadyReferred, KindAlreadyDone},
		{ErrInsufficientFunds, KindInsufficientFunds},
		{ErrOutOfStock, KindOutOfStock},
		{ErrSelfReferral, KindInvalidInput},
		{invalidInput("price %d", -1), KindInvalidInput},
		{fmt.Errorf("wrapped: %w", ErrDuplicateEntry), KindAlreadyDone},
		{storageError("load", errors.New("disk gone")), KindStorage},
		{errors.New("plain"), KindStorage},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err), tc.err.Error())
	}
}

func TestInvalidInputWrapsSentinel(t *testing.T) {
	err := invalidInput("name is required")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "name is required")
}

func TestKindString(t *testing.T) {
	require.Equal(t, "insufficient_funds", KindInsufficientFunds.String())
	require.Equal(t, "storage_failure", KindStorage.String())
}
