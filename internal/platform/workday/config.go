package workday

import "jobscrape/internal/platform"

// defaultsConfig is the platform's registered defaults tier in the
// merge chain: ALL-CAPS keys, as a platform author would lay them out
// alongside the DOM selectors it also owns.
var defaultsConfig = map[string]string{
	"LISTING_CONTAINER":      defaultSelectors[selListingContainer],
	"LISTING_ITEM":           defaultSelectors[selListingItem],
	"TITLE_LINK":             defaultSelectors[selTitleLink],
	"LOCATION_CELL":          defaultSelectors[selLocationCell],
	"DATE_POSTED_CELL":       defaultSelectors[selDatePostedCell],
	"PAGINATION_CONTAINER":   defaultSelectors[selPaginationContainer],
	"NEXT_PAGE_BUTTON":       defaultSelectors[selNextPageButton],
	"JOB_DESCRIPTION":        defaultSelectors[selJobDescription],
	"JOB_ID_DISPLAY":         defaultSelectors[selJobIDDisplay],
	"SCROLL_MAX_ATTEMPTS":    "20",
	"SCROLL_NO_PROGRESS_CAP": "5",
}

func init() {
	platform.Register("workday", NewCrawler, NewParser, defaultsConfig)
}
