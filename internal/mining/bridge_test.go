package mining

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// fakeRunner records every invocation and replays canned process output.
type fakeRunner struct {
	stdout   []byte
	stderr   []byte
	exitCode int
	err      error

	calls []fakeCall
}

type fakeCall struct {
	bin   string
	args  []string
	dir   string
	stdin []byte
}

func (f *fakeRunner) Run(ctx context.Context, bin string, args []string, dir string, stdin []byte) ([]byte, []byte, int, error) {
	f.calls = append(f.calls, fakeCall{bin: bin, args: args, dir: dir, stdin: stdin})
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}
	return f.stdout, f.stderr, f.exitCode, f.err
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func testBridgeConfig() config.MiningConfig {
	return config.MiningConfig{
		PythonBin:     "python3",
		ScriptsDir:    "/srv/miner",
		ServiceScript: "recommendation_service.py",
		MaxMiners:     2,
	}
}

func TestBridge_Invoke(t *testing.T) {
	fake := &fakeRunner{
		stdout: []byte(`{"success":true,"recommendations":[{"productID":7,"score":0.82,"frequency":3,"confidence":0.61}],"totalPatterns":12}`),
		stderr: []byte("loaded 42 orders\n"),
	}
	bridge := NewBridge(testBridgeConfig(), testLogger())
	bridge.runner = fake

	req := Request{
		Action: ActionRecommend,
		Orders: []contracts.Transaction{
			{OrderID: 1, Items: []contracts.TransactionItem{{ProductID: 7, Quantity: 1, Price: 100}}},
		},
		ProductID: 7,
		MinUtil:   0.1,
		MinCor:    0.3,
		TopN:      5,
	}

	resp, err := bridge.Invoke(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, 7, resp.Recommendations[0].ProductID)
	assert.Equal(t, 12, resp.TotalPatterns)

	// One process per call, run in the scripts directory with the request
	// serialized onto stdin.
	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, "python3", call.bin)
	assert.Equal(t, []string{"/srv/miner/recommendation_service.py"}, call.args)
	assert.Equal(t, "/srv/miner", call.dir)

	var sent Request
	require.NoError(t, json.Unmarshal(call.stdin, &sent))
	assert.Equal(t, ActionRecommend, sent.Action)
	assert.Equal(t, 7, sent.ProductID)
	assert.Equal(t, 5, sent.TopN)
}

func TestBridge_Invoke_ProcessFailure(t *testing.T) {
	fake := &fakeRunner{exitCode: 2, stderr: []byte("Traceback (most recent call last):\n")}
	bridge := NewBridge(testBridgeConfig(), testLogger())
	bridge.runner = fake

	_, err := bridge.Invoke(context.Background(), Request{Action: ActionRecommend})
	require.Error(t, err)

	var procErr *ProcessFailure
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 2, procErr.ExitCode)
	assert.Contains(t, procErr.Stderr, "Traceback")
}

func TestBridge_Invoke_ProtocolError(t *testing.T) {
	// Exit zero but garbage on stdout is a protocol violation, not success.
	fake := &fakeRunner{stdout: []byte("mining complete\n")}
	bridge := NewBridge(testBridgeConfig(), testLogger())
	bridge.runner = fake

	_, err := bridge.Invoke(context.Background(), Request{Action: ActionCartAnalysis})
	require.Error(t, err)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "mining complete\n", protoErr.Output)
}

func TestBridge_Invoke_LaunchError(t *testing.T) {
	fake := &fakeRunner{err: errors.New("exec: \"python3\": executable file not found in $PATH")}
	bridge := NewBridge(testBridgeConfig(), testLogger())
	bridge.runner = fake

	_, err := bridge.Invoke(context.Background(), Request{Action: ActionBoughtTogether})
	require.Error(t, err)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "recommendation_service.py", launchErr.Script)
}

func TestBridge_Invoke_ContextCanceled(t *testing.T) {
	fake := &fakeRunner{stdout: []byte(`{"success":true}`)}
	bridge := NewBridge(testBridgeConfig(), testLogger())
	bridge.runner = fake

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bridge.Invoke(ctx, Request{Action: ActionRecommend})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
