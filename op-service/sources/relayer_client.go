package sources

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

var (
	errRelayerDisabled = errors.New("relayer endpoint not configured")
	errEmptyReceipt    = errors.New("relayer returned an empty receipt")
)

const MethodSubmitMessage = "relayer_submitMessage"

type RelayerAPIConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func RelayerAPIDefaultConfig() *RelayerAPIConfig {
	return &RelayerAPIConfig{
		Endpoint: "",
		Timeout:  10 * time.Second,
	}
}

// SubmitMessageArgs is the request body of relayer_submitMessage.
type SubmitMessageArgs struct {
	ID      common.Hash   `json:"id"`
	Payload hexutil.Bytes `json:"payload"`
}

// RelayerClient hands encoded outbound messages to the relayer that carries
// them to the external chain.
type RelayerClient struct {
	log    log.Logger
	config *RelayerAPIConfig
	rpc    *rpc.Client
}

func NewRelayerClient(ctx context.Context, log log.Logger, config *RelayerAPIConfig) (*RelayerClient, error) {
	if config.Endpoint == "" {
		return &RelayerClient{log: log, config: config}, nil
	}
	client, err := rpc.DialContext(ctx, config.Endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial relayer at %s", config.Endpoint)
	}
	return NewRelayerClientFromRPC(log, config, client), nil
}

// NewRelayerClientFromRPC wraps an existing RPC client, e.g. an in-process one.
func NewRelayerClientFromRPC(log log.Logger, config *RelayerAPIConfig, client *rpc.Client) *RelayerClient {
	return &RelayerClient{
		log:    log,
		config: config,
		rpc:    client,
	}
}

func (s *RelayerClient) Enabled() bool {
	return s.rpc != nil
}

// SubmitMessage delivers payload under id and returns the relayer's receipt.
func (s *RelayerClient) SubmitMessage(ctx context.Context, id common.Hash, payload []byte) (common.Hash, error) {
	if !s.Enabled() {
		return common.Hash{}, errRelayerDisabled
	}
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	s.log.Debug("Submitting message to relayer", "id", id, "size", len(payload))

	var receipt common.Hash
	err := s.rpc.CallContext(ctx, &receipt, MethodSubmitMessage, SubmitMessageArgs{ID: id, Payload: payload})
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to submit message %s", id)
	}
	if receipt == (common.Hash{}) {
		return common.Hash{}, errEmptyReceipt
	}
	s.log.Info("Message accepted by relayer", "id", id, "receipt", receipt)
	return receipt, nil
}

func (s *RelayerClient) Close() {
	if s.rpc != nil {
		s.rpc.Close()
	}
}
