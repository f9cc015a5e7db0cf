// Package classify turns raw probe observations into existence verdicts.
// Every function here is pure: no I/O, no logging, no clocks.
package classify

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// DefaultNotFoundStatus applies to status-code platforms that configure no set.
var DefaultNotFoundStatus = []int{400, 403, 404, 410}

// StatusCode: NotFound iff the status is in the platform's not-found set,
// otherwise Exists. Throttling (429), server errors (5xx) and statuses listed
// as ambiguous yield Unknown.
func StatusCode(obs domain.Observation, r domain.Rules) domain.Outcome {
	if obs.Err != nil {
		return TransportFailure(obs.Err)
	}
	if ambiguousStatus(obs.Status, r) {
		return domain.Undetermined(domain.CauseAmbiguous, fmt.Sprintf("status %d", obs.Status))
	}
	notFound := r.NotFoundStatus
	if len(notFound) == 0 {
		notFound = DefaultNotFoundStatus
	}
	if slices.Contains(notFound, obs.Status) {
		return domain.Missing(fmt.Sprintf("status %d", obs.Status))
	}
	return domain.Found(fmt.Sprintf("status %d", obs.Status))
}

// ContentMatch checks status and redirect target first, then scans the page
// text for not-found phrases. Anything it cannot decide is Unknown; it never
// guesses Exists from an incomplete page.
func ContentMatch(obs domain.Observation, r domain.Rules) domain.Outcome {
	if obs.Err != nil {
		return TransportFailure(obs.Err)
	}
	notFound := r.NotFoundStatus
	if len(notFound) == 0 {
		notFound = []int{404}
	}
	if slices.Contains(notFound, obs.Status) {
		return domain.Missing(fmt.Sprintf("status %d", obs.Status))
	}
	return matchPage(obs, r)
}

// Rendered applies the ContentMatch rules to a page produced by a browser
// navigation. Rendered pages carry no status code.
func Rendered(obs domain.Observation, r domain.Rules) domain.Outcome {
	if obs.Err != nil {
		return TransportFailure(obs.Err)
	}
	if obs.Status != 0 && slices.Contains(r.NotFoundStatus, obs.Status) {
		return domain.Missing(fmt.Sprintf("status %d", obs.Status))
	}
	return matchPage(obs, r)
}

func matchPage(obs domain.Observation, r domain.Rules) domain.Outcome {
	if seg, ok := notFoundPath(obs.Requested, obs.FinalURL, r.NotFoundPaths); ok {
		return domain.Missing("redirected to " + seg)
	}
	if ambiguousStatus(obs.Status, r) {
		return domain.Undetermined(domain.CauseAmbiguous, fmt.Sprintf("status %d", obs.Status))
	}

	title, text := pageText(obs)
	hay := title + "\n" + text
	if strings.TrimSpace(hay) == "" {
		return domain.Undetermined(domain.CauseAmbiguous, "empty page")
	}
	if p, ok := containsAny(hay, r.ChallengePhrases); ok {
		return domain.Undetermined(domain.CauseAmbiguous, "bot challenge: "+p)
	}
	if p, ok := containsAny(hay, r.NotFoundPhrases); ok {
		return domain.Missing("matched " + quote(p))
	}
	if obs.Truncated {
		return domain.Undetermined(domain.CauseAmbiguous, "body truncated before a not-found marker could be ruled out")
	}
	if len(r.ExistsPhrases) > 0 {
		if p, ok := containsAny(hay, r.ExistsPhrases); ok {
			return domain.Found("matched " + quote(p))
		}
		return domain.Undetermined(domain.CauseAmbiguous, "no known marker on page")
	}
	if obs.Status != 0 && (obs.Status < 200 || obs.Status >= 300) {
		return domain.Undetermined(domain.CauseAmbiguous, fmt.Sprintf("status %d", obs.Status))
	}
	return domain.Found("no not-found marker")
}

// StructuredAPI reads the existence field out of a JSON payload.
// With a success token the field must equal it for Exists; without one a
// null or missing field means NotFound.
func StructuredAPI(obs domain.Observation, r domain.Rules, api *domain.APISpec) domain.Outcome {
	if obs.Err != nil {
		return TransportFailure(obs.Err)
	}
	if api == nil {
		return domain.Undetermined(domain.CauseInternal, "no api definition")
	}
	if slices.Contains(r.NotFoundStatus, obs.Status) {
		return domain.Missing(fmt.Sprintf("status %d", obs.Status))
	}
	if ambiguousStatus(obs.Status, r) {
		return domain.Undetermined(domain.CauseAmbiguous, fmt.Sprintf("status %d", obs.Status))
	}
	if obs.Truncated || !gjson.ValidBytes(obs.Body) {
		return domain.Undetermined(domain.CauseAmbiguous, "malformed payload")
	}
	if api.RequirePath != "" && !gjson.GetBytes(obs.Body, api.RequirePath).Exists() {
		return domain.Undetermined(domain.CauseAmbiguous, "payload lacks "+api.RequirePath)
	}

	v := gjson.GetBytes(obs.Body, api.Field)
	if api.SuccessToken != "" {
		if v.Exists() && v.String() == api.SuccessToken {
			return domain.Found(api.Field + "=" + api.SuccessToken)
		}
		return domain.Missing(fmt.Sprintf("%s=%q", api.Field, v.String()))
	}
	if !v.Exists() || v.Type == gjson.Null {
		return domain.Missing(api.Field + " is null")
	}
	return domain.Found(api.Field + " present")
}

func ambiguousStatus(status int, r domain.Rules) bool {
	return status == 429 || status >= 500 || slices.Contains(r.AmbiguousStatus, status)
}

// notFoundPath reports the first marker whose path segments appear, as whole
// consecutive segments, in the final URL's path. A final path equal to the
// requested one is the profile itself and never counts as a redirect, so the
// handle "404" is not mistaken for an error page.
func notFoundPath(requested, finalURL string, markers []string) (string, bool) {
	if finalURL == "" || len(markers) == 0 {
		return "", false
	}
	final := pathSegments(finalURL)
	if requested != "" && slices.Equal(final, pathSegments(requested)) {
		return "", false
	}
	for _, m := range markers {
		want := splitPath(m)
		if len(want) == 0 {
			continue
		}
		for i := 0; i+len(want) <= len(final); i++ {
			if slices.EqualFunc(final[i:i+len(want)], want, strings.EqualFold) {
				return m, true
			}
		}
	}
	return "", false
}

func pathSegments(raw string) []string {
	if u, err := url.Parse(raw); err == nil {
		return splitPath(u.Path)
	}
	return splitPath(raw)
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func quote(s string) string { return "\"" + s + "\"" }
