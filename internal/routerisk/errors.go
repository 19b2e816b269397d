package routerisk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/evanhutnik/routerisk-service/internal/evaluator"
	"github.com/evanhutnik/routerisk-service/internal/osrm"
	"github.com/evanhutnik/routerisk-service/internal/positionstack"
	"github.com/evanhutnik/routerisk-service/internal/risk"
	"github.com/evanhutnik/routerisk-service/internal/sampler"
)

// Kind discriminates the ways a route evaluation can fail.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindRouteUnavailable
	KindInvalidGeometry
	KindNoWeatherDataAvailable
	KindEmptyRouteRisk
	KindUpstream
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRouteUnavailable:
		return "route_unavailable"
	case KindInvalidGeometry:
		return "invalid_geometry"
	case KindNoWeatherDataAvailable:
		return "no_weather"
	case KindEmptyRouteRisk:
		return "empty_route_risk"
	case KindUpstream:
		return "upstream"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// EngineError is the only error type EvaluateRoute returns.
type EngineError struct {
	Kind Kind
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an EngineError anywhere in err's chain.
func KindOf(err error) Kind {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return KindUnknown
}

// classify maps a collaborator or pipeline error onto an EngineError. fallback is used
// for errors that carry no sentinel of their own.
func classify(err error, fallback Kind) *EngineError {
	kind := fallback
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCanceled
	case errors.Is(err, positionstack.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, osrm.ErrRouteUnavailable):
		kind = KindRouteUnavailable
	case errors.Is(err, sampler.ErrInvalidGeometry):
		kind = KindInvalidGeometry
	case errors.Is(err, evaluator.ErrNoWeatherDataAvailable):
		kind = KindNoWeatherDataAvailable
	case errors.Is(err, risk.ErrEmptyRouteRisk):
		kind = KindEmptyRouteRisk
	}
	return &EngineError{Kind: kind, Err: err}
}

// CodeError carries the HTTP status and user-facing message for a failed request.
type CodeError struct {
	code int
	msg  string
}

func (c CodeError) Error() string {
	return c.msg
}

func (c CodeError) Code() int {
	return c.code
}

func codeErrorFor(err error) CodeError {
	var codeErr CodeError
	if errors.As(err, &codeErr) {
		return codeErr
	}
	switch KindOf(err) {
	case KindNotFound:
		return CodeError{code: http.StatusBadRequest, msg: "Unrecognized location. Check spelling or be more specific."}
	case KindRouteUnavailable:
		return CodeError{code: http.StatusUnprocessableEntity, msg: "No route could be found between the two locations."}
	case KindNoWeatherDataAvailable:
		return CodeError{code: http.StatusServiceUnavailable, msg: "Weather data is unavailable for every point on the route."}
	case KindUpstream:
		return CodeError{code: http.StatusBadGateway, msg: "Internal error contacting an upstream provider."}
	case KindCanceled:
		return CodeError{code: http.StatusGatewayTimeout, msg: "Route evaluation timed out or was canceled."}
	}
	return CodeError{code: http.StatusInternalServerError, msg: "Internal server error"}
}
