package constants

import "errors"

// Configuration errors.
var (
	ErrNoAccessToken     = errors.New("no access token configured, use 'polar login' or set POLAR_ACCESS_TOKEN")
	ErrUnknownServer     = errors.New("unknown server, expected 'production' or 'sandbox'")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrEmptyToken        = errors.New("access token must not be empty")
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// Command errors.
var (
	ErrInvalidFilterFormat = errors.New("invalid filter format, expected key=value")
	ErrInvalidSortFormat   = errors.New("invalid sort format, expected field or field:desc")
	ErrInvalidRangeFormat  = errors.New("invalid range format, expected field=min..max")
	ErrInvalidOutputFormat = errors.New("invalid output format, expected table, json or yaml")
	ErrExportFailed        = errors.New("export failed")
)
