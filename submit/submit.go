// Package submit turns a built bracket into a signed wire transaction
// and broadcasts it to a Solana RPC endpoint, following the same
// resty-based JSON-RPC calling convention the wallet service's SVM
// client uses for sendTransaction/simulateTransaction.
package submit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/go-resty/resty/v2"

	"github.com/expressrelay/relaycore/relay"
)

var errRPCError = errors.New("relaycore: rpc error")

// Commitment mirrors the JSON-RPC commitment levels accepted by
// sendTransaction/simulateTransaction.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type sendTransactionResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

type SimulateResult struct {
	Err    interface{} `json:"err"`
	Logs   []string    `json:"logs"`
	Unit   uint64      `json:"unitsConsumed"`
}

type simulateTransactionResponse struct {
	Result *struct {
		Value SimulateResult `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// BidSubmitter broadcasts a built bracket to the chain once a searcher
// has decided to relay it.
type BidSubmitter interface {
	// Submit signs built with feePayer, serializes it against
	// recentBlockhash, and broadcasts it, returning the transaction
	// signature on success.
	Submit(ctx context.Context, built *relay.BuiltBracket, feePayer solana.PrivateKey, recentBlockhash solana.Hash) (string, error)

	// Simulate runs simulateTransaction without broadcasting, for a
	// searcher to sanity-check a bracket before committing a real bid.
	Simulate(ctx context.Context, built *relay.BuiltBracket, feePayer solana.PrivateKey, recentBlockhash solana.Hash) (*SimulateResult, error)
}

type rpcSubmitter struct {
	client *resty.Client
}

// NewRPCSubmitter returns a BidSubmitter backed by the given Solana
// JSON-RPC endpoint.
func NewRPCSubmitter(rpcURL string) BidSubmitter {
	client := resty.New().SetBaseURL(rpcURL).SetHeader("Content-Type", "application/json")
	return &rpcSubmitter{client: client}
}

func buildSignedTx(built *relay.BuiltBracket, feePayer solana.PrivateKey, recentBlockhash solana.Hash) (*solana.Transaction, error) {
	instructions := make([]solana.Instruction, len(built.Tx.Instructions))
	for i, ix := range built.Tx.Instructions {
		instructions[i] = ix.ToSolanaInstruction()
	}
	tx, err := solana.NewTransaction(instructions, recentBlockhash, solana.TransactionPayer(feePayer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("relaycore: build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(feePayer.PublicKey()) {
			return &feePayer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("relaycore: sign transaction: %w", err)
	}
	return tx, nil
}

func (c *rpcSubmitter) Submit(ctx context.Context, built *relay.BuiltBracket, feePayer solana.PrivateKey, recentBlockhash solana.Hash) (string, error) {
	tx, err := buildSignedTx(built, feePayer, recentBlockhash)
	if err != nil {
		return "", err
	}
	wire, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("relaycore: marshal transaction: %w", err)
	}

	requestBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendTransaction",
		"params": []interface{}{
			base64.StdEncoding.EncodeToString(wire),
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": string(CommitmentConfirmed),
			},
		},
	}

	resp := &sendTransactionResponse{}
	httpResp, err := c.client.R().SetContext(ctx).SetBody(requestBody).SetResult(resp).Post("/")
	if err != nil {
		return "", fmt.Errorf("relaycore: send transaction request failed: %w", err)
	}
	if httpResp.IsError() {
		return "", fmt.Errorf("%w: http status %d", errRPCError, httpResp.StatusCode())
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: code=%d message=%s", errRPCError, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("relaycore: empty transaction signature returned")
	}
	return resp.Result, nil
}

func (c *rpcSubmitter) Simulate(ctx context.Context, built *relay.BuiltBracket, feePayer solana.PrivateKey, recentBlockhash solana.Hash) (*SimulateResult, error) {
	tx, err := buildSignedTx(built, feePayer, recentBlockhash)
	if err != nil {
		return nil, err
	}
	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("relaycore: marshal transaction: %w", err)
	}

	requestBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "simulateTransaction",
		"params": []interface{}{
			base64.StdEncoding.EncodeToString(wire),
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": string(CommitmentProcessed),
			},
		},
	}

	resp := &simulateTransactionResponse{}
	httpResp, err := c.client.R().SetContext(ctx).SetBody(requestBody).SetResult(resp).Post("/")
	if err != nil {
		return nil, fmt.Errorf("relaycore: simulate transaction request failed: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("%w: http status %d", errRPCError, httpResp.StatusCode())
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: code=%d message=%s", errRPCError, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("relaycore: empty simulate result")
	}
	return &resp.Result.Value, nil
}
