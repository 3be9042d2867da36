package pipeline

import (
	"net/http"

	"signal-gateway/internal/routing"
	exchange "signal-gateway/pkg/exchanges/common"
)

// Kind is the closed set of pipeline result kinds.
type Kind int

const (
	KindOk Kind = iota
	KindValidationError
	KindUnknownProfile
	KindTransportError
	KindHardAPIError
	KindSoftNoop
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindValidationError:
		return "validation_error"
	case KindUnknownProfile:
		return "unknown_profile"
	case KindTransportError:
		return "transport_error"
	case KindHardAPIError:
		return "hard_api_error"
	case KindSoftNoop:
		return "soft_noop"
	default:
		return "unknown"
	}
}

// KindOf maps a per-account classification onto a result kind. Acknowledged
// outcomes count as Ok.
func KindOf(c exchange.Classification) Kind {
	switch c {
	case exchange.ClassNoPositionNoop:
		return KindSoftNoop
	case exchange.ClassHardError:
		return KindHardAPIError
	case exchange.ClassTransportError:
		return KindTransportError
	default:
		return KindOk
	}
}

// Terminal statuses.
const (
	StatusProcessed = "processed"
	StatusDropped   = "dropped"
	StatusRejected  = "rejected"
)

// ReasonNoAccounts marks a signal dropped because no account was available.
const ReasonNoAccounts = "no_available_accounts"

// Result is the aggregated answer for one alert. Results follow the profile's
// declared account order.
type Result struct {
	Kind           Kind                    `json:"-"`
	Status         string                  `json:"status"`
	Reason         string                  `json:"reason,omitempty"`
	Detail         string                  `json:"detail,omitempty"`
	RoutingProfile string                  `json:"routingProfile,omitempty"`
	Command        string                  `json:"command,omitempty"`
	Action         routing.ActionKind      `json:"action,omitempty"`
	RoutedAccounts int                     `json:"routedAccounts"`
	Results        []exchange.OrderOutcome `json:"results"`
}

// HTTPStatus is 400 for rejected alerts and 200 otherwise, including dropped
// ones and batches with failed accounts.
func (r Result) HTTPStatus() int {
	switch r.Kind {
	case KindValidationError, KindUnknownProfile:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// Failed returns the outcomes that should be alerted on.
func (r Result) Failed() []exchange.OrderOutcome {
	var out []exchange.OrderOutcome
	for _, o := range r.Results {
		if !o.Classification.Success() {
			out = append(out, o)
		}
	}
	return out
}

func rejected(kind Kind, detail string) Result {
	return Result{Kind: kind, Status: StatusRejected, Detail: detail, Results: []exchange.OrderOutcome{}}
}
