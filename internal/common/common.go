package common

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry bounds the attempts GetWithRetry makes against an upstream.
type Retry struct {
	Attempts        int
	InitialInterval time.Duration
}

var DefaultRetry = Retry{Attempts: 3, InitialInterval: 200 * time.Millisecond}

// StatusError is returned when an upstream answers with a non-2xx code.
type StatusError struct {
	Name string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error code %d returned from %v", e.Code, e.Name)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// GetWithRetry performs req, retrying transport errors and 5xx/429 responses with
// exponential backoff. Other non-2xx codes fail immediately. The caller closes the body.
func GetWithRetry(client *http.Client, req *http.Request, name string, policy Retry) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	b.MaxElapsedTime = 0

	var resp *http.Response
	op := func() error {
		r, err := client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(fmt.Errorf("error on %v api request: %w", name, err))
			}
			return fmt.Errorf("error on %v api request: %w", name, err)
		}
		if r.StatusCode < 200 || r.StatusCode > 299 {
			r.Body.Close()
			statusErr := &StatusError{Name: name, Code: r.StatusCode}
			if statusErr.Transient() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		resp = r
		return nil
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.Attempts-1)), req.Context())
	if err := backoff.Retry(op, retry); err != nil {
		return nil, err
	}
	return resp, nil
}
