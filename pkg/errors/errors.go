// Package errors defines the coded error type used across the gateway.
//
// Every failure that can reach a client carries a machine-readable [Code]
// of the form CATEGORY_NNN. The category decides the HTTP status written
// by the request pipeline, so callers never map errors to statuses by hand:
//
//	info, err := provider.Authorities(ctx, username)
//	if err != nil {
//	    e := errors.FromError(err)
//	    http.Error(w, e.Message, e.HTTPStatus())
//	    return
//	}
//
// Directory outages surface as UNAVAIL_xxx, disabled or protected users as
// AUTHZ_xxx, unknown users as NF_xxx and exhausted rate budgets as
// LIMIT_xxx. Storage drivers wrap their failures as INT_002 or TIMEOUT_002.
package errors
