package domain

// Observation is the raw result of one outbound call. It lives only for the
// duration of a probe and is never stored.
type Observation struct {
	Status    int    // HTTP status; 0 for rendered pages and transport failures
	Requested string // URL the probe asked for
	FinalURL  string // URL after redirects
	Body      []byte
	Title     string // set by browser navigations
	Truncated bool   // body was cut at the read limit
	Rendered  bool   // came from a browser, not a raw HTTP response
	Err       error  // transport failure
}
