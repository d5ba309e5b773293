package analyzer

import "errors"

// ErrFetchFailed wraps failures to retrieve the post content.
var ErrFetchFailed = errors.New("content fetch failed")
