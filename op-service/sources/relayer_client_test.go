package sources

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

type relayerAPI struct {
	received []SubmitMessageArgs
	fail     bool
}

func (r *relayerAPI) SubmitMessage(args SubmitMessageArgs) (common.Hash, error) {
	if r.fail {
		return common.Hash{}, errors.New("relayer busy")
	}
	r.received = append(r.received, args)
	return crypto.Keccak256Hash(args.ID[:], args.Payload), nil
}

func newTestClient(t *testing.T, api *relayerAPI) *RelayerClient {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("relayer", api))
	t.Cleanup(server.Stop)
	lgr := log.NewLogger(log.NewTerminalHandler(io.Discard, false))
	client := NewRelayerClientFromRPC(lgr, RelayerAPIDefaultConfig(), rpc.DialInProc(server))
	t.Cleanup(client.Close)
	return client
}

func TestSubmitMessage(t *testing.T) {
	api := new(relayerAPI)
	client := newTestClient(t, api)
	id := common.HexToHash("0x01")

	receipt, err := client.SubmitMessage(context.Background(), id, []byte{0xca, 0xfe})
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(id[:], []byte{0xca, 0xfe}), receipt)
	require.Len(t, api.received, 1)
	require.Equal(t, id, api.received[0].ID)
}

func TestSubmitMessageError(t *testing.T) {
	client := newTestClient(t, &relayerAPI{fail: true})
	_, err := client.SubmitMessage(context.Background(), common.Hash{}, []byte{1})
	require.ErrorContains(t, err, "relayer busy")
}

func TestDisabledClient(t *testing.T) {
	lgr := log.NewLogger(log.NewTerminalHandler(io.Discard, false))
	client, err := NewRelayerClient(context.Background(), lgr, RelayerAPIDefaultConfig())
	require.NoError(t, err)
	require.False(t, client.Enabled())
	_, err = client.SubmitMessage(context.Background(), common.Hash{}, nil)
	require.ErrorIs(t, err, errRelayerDisabled)
}
