package classify

import (
	"context"
	"errors"
	"net"

	"github.com/hamed0406/handlecheck/internal/domain"
)

// TransportFailure attributes a failed outbound call. DNS answers are
// labelled the way resolver results are classed elsewhere: NXDOMAIN or
// SERVFAIL_or_TIMEOUT.
func TransportFailure(err error) domain.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Undetermined(domain.CauseTimeout, err.Error())
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		class := "dns"
		switch {
		case de.IsNotFound:
			class = "dns NXDOMAIN"
		case de.IsTimeout || de.IsTemporary:
			class = "dns SERVFAIL_or_TIMEOUT"
		}
		return domain.Undetermined(domain.CauseTransport, class+": "+de.Name)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.Undetermined(domain.CauseTimeout, err.Error())
	}
	return domain.Undetermined(domain.CauseTransport, err.Error())
}
