package suirpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampaigns/sponsord/interfaces"
)

// newTestFullnode serves canned JSON-RPC results keyed by method name.
func newTestFullnode(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, ok := results[req.Method]
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func TestClient_Balance(t *testing.T) {
	address := "0x0000000000000000000000000000000000000000000000000000000000000042"
	fullnode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "suix_getBalance", req.Method)
		require.Len(t, req.Params, 2)
		assert.Equal(t, address, req.Params[0])
		assert.Equal(t, nativeCoinType, req.Params[1])

		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"coinType":"0x2::sui::SUI","coinObjectCount":4,"totalBalance":"3871649868"}}`)
	}))
	defer fullnode.Close()

	client := NewClient(fullnode.URL)

	balance, err := client.Balance(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_871_649_868), balance)
}

func TestClient_CurrentEpoch(t *testing.T) {
	fullnode := newTestFullnode(t, map[string]string{
		"suix_getLatestSuiSystemState": `{"epoch":"517","protocolVersion":"68"}`,
	})
	defer fullnode.Close()

	client := NewClient(fullnode.URL)

	epoch, err := client.CurrentEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(517), epoch)
}

func TestClient_RPCErrorIsNetworkError(t *testing.T) {
	fullnode := newTestFullnode(t, nil) // every method answers with an rpc error
	defer fullnode.Close()

	client := NewClient(fullnode.URL)

	_, err := client.Balance(context.Background(), "0xab")
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
	assert.Contains(t, err.Error(), "Method not found")
}

func TestClient_HTTPErrorIsNetworkError(t *testing.T) {
	fullnode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer fullnode.Close()

	client := NewClient(fullnode.URL)

	_, err := client.CurrentEpoch(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
}

func TestClient_UnreachableEndpoint(t *testing.T) {
	fullnode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fullnode.Close() // closed before use

	client := NewClient(fullnode.URL)

	_, err := client.Balance(context.Background(), "0xab")
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
}

func TestClient_UnparseableBalance(t *testing.T) {
	fullnode := newTestFullnode(t, map[string]string{
		"suix_getBalance": `{"coinType":"0x2::sui::SUI","totalBalance":"not-a-number"}`,
	})
	defer fullnode.Close()

	client := NewClient(fullnode.URL)

	_, err := client.Balance(context.Background(), "0xab")
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
}
