package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LamportsPerSol converts between the chain's integer unit and SOL.
const LamportsPerSol = 1_000_000_000

var ErrTransactionNotFound = errors.New("transaction not found")

// Transfer is one parsed system-program transfer inside a transaction.
type Transfer struct {
	Source      string
	Destination string
	Lamports    uint64
}

func (t Transfer) AmountSOL() float64 {
	return float64(t.Lamports) / LamportsPerSol
}

// Transaction is the subset of a confirmed transaction the payment
// verifier needs: whether it failed on chain and the transfers it made.
type Transaction struct {
	Signature string
	Failed    bool
	Transfers []Transfer
}

type ClientConfig struct {
	RPCURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client speaks JSON-RPC to a Solana node. Only getTransaction is
// implemented; responses are requested in jsonParsed encoding so the
// transfer instructions arrive pre-decoded.
type Client struct {
	rpcURL     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	if strings.TrimSpace(config.RPCURL) == "" {
		config.RPCURL = "https://api.mainnet-beta.solana.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Client{
		rpcURL:     config.RPCURL,
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
	}
}

func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, errors.New("signature is required")
	}

	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getTransaction",
		"params": []any{
			signature,
			map[string]any{
				"encoding":                       "jsonParsed",
				"commitment":                     "confirmed",
				"maxSupportedTransactionVersion": 0,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc payload: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rpc request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("rpc transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("read rpc body: %w", err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, fmt.Errorf("rpc status %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw rpcResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if raw.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", raw.Error.Code, raw.Error.Message)
	}
	if raw.Result == nil {
		return nil, ErrTransactionNotFound
	}

	return parseTransaction(signature, raw.Result), nil
}

type rpcResponse struct {
	Result *rpcTransactionResult `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type rpcTransactionResult struct {
	Meta struct {
		Err any `json:"err"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			Instructions []rpcInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type rpcInstruction struct {
	Program string `json:"program"`
	Parsed  *struct {
		Type string `json:"type"`
		Info struct {
			Source      string  `json:"source"`
			Destination string  `json:"destination"`
			Lamports    float64 `json:"lamports"`
		} `json:"info"`
	} `json:"parsed"`
}

func parseTransaction(signature string, result *rpcTransactionResult) *Transaction {
	transaction := &Transaction{
		Signature: signature,
		Failed:    result.Meta.Err != nil,
	}
	for _, instruction := range result.Transaction.Message.Instructions {
		if instruction.Program != "system" || instruction.Parsed == nil {
			continue
		}
		if instruction.Parsed.Type != "transfer" {
			continue
		}
		transaction.Transfers = append(transaction.Transfers, Transfer{
			Source:      instruction.Parsed.Info.Source,
			Destination: instruction.Parsed.Info.Destination,
			Lamports:    uint64(instruction.Parsed.Info.Lamports),
		})
	}
	return transaction
}
