package understat

import "fmt"

// FetchError reports an unavailable or malformed upstream response.
type FetchError struct {
	Op     string
	League string
	Season string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("understat %s %s/%s: %v", e.Op, e.League, e.Season, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is returned by HTTPFetcher for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s failed: %d body=%s", e.URL, e.StatusCode, e.Body)
}
