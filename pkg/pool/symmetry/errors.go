package symmetry

import "errors"

var (
	// ErrMintNotInCatalog is returned when a quoted mint does not appear
	// in the token catalog at all.
	ErrMintNotInCatalog = errors.New("mint not found in token catalog")

	// ErrMintNotInFund is returned when a mint exists in the catalog but
	// is not part of the fund's current composition.
	ErrMintNotInFund = errors.New("mint not in fund composition")

	// ErrOracleNotLive is returned when a composition token's oracle
	// snapshot is stale, halted or outside its confidence envelope.
	ErrOracleNotLive = errors.New("oracle price not live")

	// ErrMissingAccount is returned by Update when a required account
	// blob is absent from the refresh map.
	ErrMissingAccount = errors.New("missing account data")
)
