package linear_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/adapters/linear"
	"github.com/wireit-go/wireit/internal/core/ports"
)

func TestRenderer_OnScriptLog_EmitsCompleteLinesPrefixed(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	start := time.Now()
	r.OnScriptStart("build", "", "build", start)
	r.OnScriptLog("build", []byte("first line\nsecond partial"), false)

	assert.Equal(t, "[build] first line\n", stdout.String())

	r.OnScriptLog("build", []byte(" line\n"), false)
	assert.Equal(t, "[build] first line\n[build] second partial line\n", stdout.String())
}

func TestRenderer_OnScriptComplete_FlushesTrailingPartialLine(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnScriptStart("build", "", "build", time.Now())
	r.OnScriptLog("build", []byte("no newline at end"), false)
	r.OnScriptComplete("build", time.Now(), ports.OutcomeSuccessRan, nil)

	assert.Contains(t, stdout.String(), "no newline at end")
	assert.Contains(t, stderr.String(), "completed in")
}

func TestRenderer_OnScriptComplete_DistinguishesOutcomes(t *testing.T) {
	cases := []struct {
		outcome ports.ExecutionOutcome
		want    string
	}{
		{ports.OutcomeSuccessFresh, "Already fresh"},
		{ports.OutcomeSuccessCached, "restored from cache"},
		{ports.OutcomeSuccessNoCommand, "no command"},
		{ports.OutcomeFailed, "failed after"},
	}
	for _, tc := range cases {
		var stdout, stderr bytes.Buffer
		r := linear.NewRenderer(&stdout, &stderr)
		r.OnScriptStart("s", "", "s", time.Now())
		r.OnScriptComplete("s", time.Now(), tc.outcome, assertErr(tc.outcome))
		assert.Contains(t, stderr.String(), tc.want)
	}
}

func assertErr(outcome ports.ExecutionOutcome) error {
	if outcome == ports.OutcomeFailed {
		return assertError{}
	}
	return nil
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestRenderer_Stop_FlushesAllBuffers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnScriptStart("a", "", "a", time.Now())
	r.OnScriptLog("a", []byte("partial"), false)

	require.NoError(t, r.Stop())
	assert.Contains(t, stdout.String(), "partial")
}

func TestRenderer_OnPlanEmit(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)
	r.OnPlanEmit([]string{"build", "test"}, nil, "/repo")
	assert.Contains(t, stderr.String(), "Resolved 2 script(s)")
}
