package domain

// FilterMode selects the ordering/truncation applied to the visible asset list.
type FilterMode string

const (
	FilterAll            FilterMode = "all"
	FilterTopGainers     FilterMode = "top-gainers"
	FilterTopLosers      FilterMode = "top-losers"
	FilterMostExpensive  FilterMode = "most-expensive"
	FilterLeastExpensive FilterMode = "least-expensive"
	FilterHighestMcap    FilterMode = "highest-mcap"
	FilterRecommended    FilterMode = "recommended"
)

// ParseFilterMode returns the matching mode; unknown values fall back to FilterAll.
func ParseFilterMode(s string) FilterMode {
	switch m := FilterMode(s); m {
	case FilterTopGainers, FilterTopLosers, FilterMostExpensive,
		FilterLeastExpensive, FilterHighestMcap, FilterRecommended:
		return m
	default:
		return FilterAll
	}
}

// FilterState is the user-controlled view state read by the filter pipeline.
type FilterState struct {
	ActiveTab    AssetType  `json:"active_tab"`
	ActiveFilter FilterMode `json:"active_filter"`
	SearchQuery  string     `json:"search_query"`
}

// DefaultFilterState is the state on startup: crypto tab, no filter, no search.
func DefaultFilterState() FilterState {
	return FilterState{
		ActiveTab:    AssetTypeCrypto,
		ActiveFilter: FilterAll,
	}
}
