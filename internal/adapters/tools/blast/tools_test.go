package blast

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	portmocks "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports/mocks"
)

type scriptedServer struct {
	mu        sync.Mutex
	responses []string
	requests  []url.Values
	methods   []string
}

func newScriptedServer(t *testing.T, responses ...string) (*scriptedServer, string) {
	t.Helper()
	script := &scriptedServer{responses: responses}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		script.mu.Lock()
		defer script.mu.Unlock()
		script.requests = append(script.requests, r.Form)
		script.methods = append(script.methods, r.Method)
		index := len(script.requests) - 1
		if index >= len(script.responses) {
			index = len(script.responses) - 1
		}
		_, _ = io.WriteString(w, script.responses[index])
	}))
	t.Cleanup(server.Close)
	return script, server.URL + "/blast/Blast.cgi"
}

func (s *scriptedServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type countingLimiter struct {
	mu      sync.Mutex
	permits int
	holding bool
}

func (l *countingLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.permits++
	l.holding = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.holding = false
		l.mu.Unlock()
	}()
	return fn(ctx)
}

func (l *countingLimiter) isHolding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holding
}

func newTestClient(t *testing.T, baseURL string, limiter Limiter, clock *portmocks.MockClock) *Client {
	t.Helper()
	client, err := NewClient(baseURL, DefaultPollPolicy(), limiter, clock, nil)
	require.NoError(t, err)
	return client
}

func TestSpecsGating(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.GateCall, PutSpec().Gate)
	assert.Equal(t, domain.GateSelf, GetSpec().Gate)
	assert.False(t, PutSpec().Cacheable)
	assert.False(t, GetSpec().Cacheable)
}

func TestPollPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPollPolicy().Validate())
	require.Error(t, PollPolicy{MaxRetries: -1}.Validate())
	require.Error(t, PollPolicy{RetryWait: -time.Second}.Validate())
}

func TestPutSubmitsFormAndExtractsRID(t *testing.T) {
	t.Parallel()
	script, baseURL := newScriptedServer(t, "<!--QBlastInfoBegin\n    RID = 6ZA1B2C3016\n    RTOE = 20\nQBlastInfoEnd-->")
	client := newTestClient(t, baseURL, nil, portmocks.NewMockClock(t))

	content, err := client.Tools()[0].Execute(context.Background(), json.RawMessage(`{"sequence":"ACGTACGT"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rid":"6ZA1B2C3016"}`, content)

	require.Equal(t, 1, script.calls())
	form := script.requests[0]
	assert.Equal(t, http.MethodPost, script.methods[0])
	assert.Equal(t, "Put", form.Get("CMD"))
	assert.Equal(t, "blastn", form.Get("PROGRAM"))
	assert.Equal(t, "nt", form.Get("DATABASE"))
	assert.Equal(t, "ACGTACGT", form.Get("QUERY"))
	assert.Equal(t, "10", form.Get("HITLIST_SIZE"))
	assert.Equal(t, "on", form.Get("MEGABLAST"))
}

func TestPutOmitsMegablastForProteinPrograms(t *testing.T) {
	t.Parallel()
	script, baseURL := newScriptedServer(t, "RID = ABC123")
	client := newTestClient(t, baseURL, nil, portmocks.NewMockClock(t))

	_, err := client.Tools()[0].Execute(context.Background(), json.RawMessage(`{"sequence":"MKV","program":"blastp","database":"nr","hitlist_size":3}`))
	require.NoError(t, err)

	form := script.requests[0]
	assert.False(t, form.Has("MEGABLAST"))
	assert.Equal(t, "3", form.Get("HITLIST_SIZE"))
}

func TestPutErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "qblast message", body: "QBlastInfoBegin\nMessage=Query contains no data\nQBlastInfoEnd", want: "NCBI BLAST Error: Query contains no data"},
		{name: "no rid", body: "<html>busy</html>", want: "could not parse RID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, baseURL := newScriptedServer(t, tt.body)
			client := newTestClient(t, baseURL, nil, portmocks.NewMockClock(t))

			_, err := client.Tools()[0].Execute(context.Background(), json.RawMessage(`{"sequence":"ACGT"}`))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestGetReturnsTruncatedReport(t *testing.T) {
	t.Parallel()
	report := "Status=READY\n" + strings.Repeat("x", maxReportContent)
	script, baseURL := newScriptedServer(t, report)

	clock := portmocks.NewMockClock(t)
	limiter := &countingLimiter{}
	clock.EXPECT().Sleep(mock.Anything, 30*time.Second).RunAndReturn(func(ctx context.Context, _ time.Duration) error {
		assert.False(t, limiter.isHolding())
		return nil
	}).Once()
	client := newTestClient(t, baseURL, limiter, clock)

	content, err := client.Tools()[1].Execute(context.Background(), json.RawMessage(`{"rid":"R1"}`))
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(content), &payload))
	assert.Len(t, payload["report"], maxReportContent)
	assert.Equal(t, 1, limiter.permits)

	form := script.requests[0]
	assert.Equal(t, http.MethodGet, script.methods[0])
	assert.Equal(t, "Get", form.Get("CMD"))
	assert.Equal(t, "R1", form.Get("RID"))
	assert.Equal(t, "Text", form.Get("FORMAT_TYPE"))
}

func TestGetPollsUntilReady(t *testing.T) {
	t.Parallel()
	script, baseURL := newScriptedServer(t, "Status=WAITING", "Status=SEARCHING", "Status=READY\nhits")

	clock := portmocks.NewMockClock(t)
	limiter := &countingLimiter{}
	clock.EXPECT().Sleep(mock.Anything, 30*time.Second).Return(nil).Once()
	clock.EXPECT().Sleep(mock.Anything, 15*time.Second).RunAndReturn(func(context.Context, time.Duration) error {
		assert.False(t, limiter.isHolding())
		return nil
	}).Twice()
	client := newTestClient(t, baseURL, limiter, clock)

	content, err := client.Tools()[1].Execute(context.Background(), json.RawMessage(`{"rid":"R1","format_type":"XML"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"report":"Status=READY\nhits"}`, content)
	assert.Equal(t, 3, script.calls())
	assert.Equal(t, 3, limiter.permits)
	assert.Equal(t, "XML", script.requests[2].Get("FORMAT_TYPE"))
}

func TestGetGivesUpWhileStillWaiting(t *testing.T) {
	t.Parallel()
	script, baseURL := newScriptedServer(t, "Status=WAITING")

	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Sleep(mock.Anything, 30*time.Second).Return(nil).Once()
	clock.EXPECT().Sleep(mock.Anything, 15*time.Second).Return(nil).Twice()
	client := newTestClient(t, baseURL, &countingLimiter{}, clock)

	content, err := client.Tools()[1].Execute(context.Background(), json.RawMessage(`{"rid":"R1"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"WAITING","message":"BLAST job is still processing. Try again later."}`, content)
	assert.Equal(t, 3, script.calls())
}

func TestGetReportsFailedJobs(t *testing.T) {
	t.Parallel()
	_, baseURL := newScriptedServer(t, "Status=UNKNOWN\nMessage=RID expired\n")

	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Sleep(mock.Anything, 30*time.Second).Return(nil).Once()
	client := newTestClient(t, baseURL, nil, clock)

	_, err := client.Tools()[1].Execute(context.Background(), json.RawMessage(`{"rid":"R9"}`))
	require.ErrorContains(t, err, "BLAST job for RID R9 failed or status is unknown. NCBI Message: RID expired")
}

func TestGetStopsWhenInitialWaitIsCancelled(t *testing.T) {
	t.Parallel()
	script, baseURL := newScriptedServer(t, "Status=READY")

	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Sleep(mock.Anything, 30*time.Second).Return(context.Canceled).Once()
	client := newTestClient(t, baseURL, nil, clock)

	_, err := client.Tools()[1].Execute(context.Background(), json.RawMessage(`{"rid":"R1"}`))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, script.calls())
}
