// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/flatrent/flatrent/pkg/errutil"
)

var errNotFound = errors.New("not found")

func TestAssertErrorIs(t *testing.T) {
	err := oops.Code("RESET_USER_NOT_FOUND").
		With("email", "a@x.com").
		Wrap(errNotFound)

	errutil.AssertErrorIs(t, err, errNotFound, "RESET_USER_NOT_FOUND")
	errutil.AssertErrorContext(t, err, "email", "a@x.com")
}

func TestAssertErrorContext_NonStringValue(t *testing.T) {
	err := oops.Code("REFRESH_REPLACE_FAILED").
		With("user_id", int64(7)).
		Errorf("upsert failed")

	errutil.AssertErrorContext(t, err, "user_id", int64(7))
}
