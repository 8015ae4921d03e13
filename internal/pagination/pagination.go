package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when the client omits page.
	DefaultPage = 1
	// DefaultLimit is the fallback number of rows per page.
	DefaultLimit = 10
	// DefaultMaxLimit caps limit to prevent unbounded queries.
	DefaultMaxLimit = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

var (
	ErrInvalidPage      = errors.New("pagination: invalid page")
	ErrInvalidLimit     = errors.New("pagination: invalid limit")
	ErrInvalidSortField = errors.New("pagination: invalid sortBy")
	ErrInvalidSortOrder = errors.New("pagination: invalid sortOrder")
)

// Options are the raw pagination values taken from a request.
type Options struct {
	Page      string
	Limit     string
	SortBy    string
	SortOrder string
}

// Params is the normalised form of Options.
type Params struct {
	Page      int
	Limit     int
	Skip      int
	SortBy    string
	SortOrder string
}

// Desc reports whether results are sorted in descending order.
func (p Params) Desc() bool {
	return p.SortOrder == SortDesc
}

// Config controls how Resolve treats a given listing.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	DefaultSort  string
	// SortFields maps accepted client field names to storage column names.
	SortFields map[string]string
}

// FromQuery picks the pagination parameters out of a query string.
func FromQuery(values url.Values) Options {
	if values == nil {
		return Options{}
	}
	return Options{
		Page:      values.Get("page"),
		Limit:     values.Get("limit"),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
	}
}

// Resolve turns raw options into page, limit, skip and sort values.
// An explicit sort field and direction are used together; otherwise the
// listing falls back to cfg.DefaultSort, newest first.
func Resolve(opts Options, cfg Config) (Params, error) {
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	page, err := parsePositive(opts.Page, DefaultPage)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	limit, err := parsePositive(opts.Limit, defaultLimit)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := Params{
		Page:      page,
		Limit:     limit,
		Skip:      (page - 1) * limit,
		SortBy:    cfg.DefaultSort,
		SortOrder: SortDesc,
	}

	sortBy := strings.TrimSpace(opts.SortBy)
	sortOrder := strings.ToLower(strings.TrimSpace(opts.SortOrder))
	if sortOrder != "" && sortOrder != SortAsc && sortOrder != SortDesc {
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidSortOrder, opts.SortOrder)
	}
	if sortBy == "" {
		return params, nil
	}

	column, ok := cfg.SortFields[sortBy]
	if !ok {
		return Params{}, fmt.Errorf("%w: field %q is not allowed", ErrInvalidSortField, sortBy)
	}
	if sortOrder == "" {
		// sortBy without a direction keeps the default ordering
		return params, nil
	}
	params.SortBy = column
	params.SortOrder = sortOrder
	return params, nil
}

func parsePositive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be greater than zero")
	}
	return value, nil
}
