package classify_test

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/venohr/stepflow/pkg/classify"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want classify.ErrorKind
	}{
		{
			name: "deadline exceeded is a timeout",
			err:  context.DeadlineExceeded,
			want: classify.KindTimeout,
		},
		{
			name: "net timeout wrapped in url error is a timeout",
			err:  &url.Error{Op: "Post", URL: "http://provider", Err: timeoutError{}},
			want: classify.KindTimeout,
		},
		{
			name: "dns failure is connectivity",
			err:  &net.DNSError{Err: "no such host", Name: "provider.invalid"},
			want: classify.KindConnectivity,
		},
		{
			name: "connection refused is connectivity",
			err:  &url.Error{Op: "Post", URL: "http://provider", Err: errors.New("connection refused")},
			want: classify.KindConnectivity,
		},
		{
			name: "404 response is not found",
			err:  classify.NewError(404, "client not found"),
			want: classify.KindNotFound,
		},
		{
			name: "409 response is conflict",
			err:  classify.NewError(409, "client already exists"),
			want: classify.KindConflict,
		},
		{
			name: "non-2xx response is generic",
			err:  classify.NewError(502, "Request failed"),
			want: classify.KindGeneric,
		},
		{
			name: "anything else is generic",
			err:  errors.New("boom"),
			want: classify.KindGeneric,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, classify.Classify(tc.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	// Collaborator errors carry their text verbatim.
	assert.Equal(t, "Request failed", classify.Message(classify.NewError(502, "Request failed")))

	// Other failures get their kind prefixed for the operator.
	assert.Equal(t, "Timeout: context deadline exceeded", classify.Message(context.DeadlineExceeded))
}
