package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
)

// contractABI is the consumed surface of the advisory contract: the payable
// request method, the fee read method, and the event carrying the
// correlation id.
const contractABI = `[
  {"type":"function","name":"analysisPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"requestAnalysis","stateMutability":"payable","inputs":[{"name":"imageFingerprint","type":"string"}],"outputs":[]},
  {"type":"event","name":"PaymentReceived","anonymous":false,"inputs":[
    {"name":"payer","type":"address","indexed":true},
    {"name":"requestId","type":"uint256","indexed":true},
    {"name":"imageFingerprint","type":"string","indexed":false}]}
]`

// Coordinator pays the analysis fee through a relayer key and extracts the
// contract-assigned correlation id from the PaymentReceived event.
type Coordinator struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
}

// New dials the RPC endpoint and prepares the relayer identity. The client
// lives for the process lifetime; call Close at shutdown.
func New(ctx context.Context, rpcURL, contractAddr, relayerKeyHex string) (*Coordinator, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("%w: contract %q", ledger.ErrInvalidAddress, contractAddr)
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(relayerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse relayer key: %w", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ledger.ErrUnavailable, rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: chain id: %v", ledger.ErrUnavailable, err)
	}
	return &Coordinator{
		client:   client,
		abi:      parsed,
		contract: common.HexToAddress(contractAddr),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
	}, nil
}

func (c *Coordinator) Close() { c.client.Close() }

// Price reads analysisPrice() from the contract.
func (c *Coordinator) Price(ctx context.Context) (*big.Int, error) {
	data, err := c.abi.Pack("analysisPrice")
	if err != nil {
		return nil, err
	}
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: analysisPrice: %v", ledger.ErrUnavailable, err)
	}
	vals, err := c.abi.Unpack("analysisPrice", out)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("%w: analysisPrice returned malformed data", ledger.ErrUnavailable)
	}
	price, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: analysisPrice returned non-integer", ledger.ErrUnavailable)
	}
	return price, nil
}

// RequestAnalysis submits requestAnalysis(fingerprint) with the fee as value
// and waits for the mined receipt. The fee is read once here and attached to
// the transaction; the same value is returned so callers report the amount
// that was actually paid. The on-chain spend happens before the id is known;
// a mined transaction whose receipt lacks the event is surfaced as
// ErrEventNotFound, never as a transport failure.
func (c *Coordinator) RequestAnalysis(ctx context.Context, owner, fingerprint string) (string, *big.Int, error) {
	if !common.IsHexAddress(owner) {
		return "", nil, fmt.Errorf("%w: %q", ledger.ErrInvalidAddress, owner)
	}

	price, err := c.Price(ctx)
	if err != nil {
		return "", nil, err
	}

	data, err := c.abi.Pack("requestAnalysis", fingerprint)
	if err != nil {
		return "", nil, err
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", nil, fmt.Errorf("%w: nonce: %v", ledger.ErrUnavailable, err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: gas price: %v", ledger.ErrUnavailable, err)
	}
	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.contract,
		Value: price,
		Data:  data,
	})
	if err != nil {
		return "", nil, classifySubmitError(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    price,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ledger.ErrRejectedSignature, err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", nil, classifySubmitError(err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, signed)
	if err != nil {
		return "", nil, fmt.Errorf("%w: wait mined: %v", ledger.ErrUnavailable, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", nil, fmt.Errorf("%w: transaction %s reverted", ledger.ErrUnavailable, signed.Hash())
	}

	id, err := ExtractCorrelationID(c.abi, c.contract, receipt)
	if err != nil {
		return "", nil, err
	}
	return id, price, nil
}

// ExtractCorrelationID locates the PaymentReceived event emitted by the
// contract and returns the indexed requestId as a decimal string.
func ExtractCorrelationID(parsed abi.ABI, contract common.Address, receipt *types.Receipt) (string, error) {
	eventID := parsed.Events["PaymentReceived"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != contract || len(lg.Topics) < 3 || lg.Topics[0] != eventID {
			continue
		}
		return lg.Topics[2].Big().String(), nil
	}
	return "", fmt.Errorf("%w: tx %s", ledger.ErrEventNotFound, receipt.TxHash)
}

func classifySubmitError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "insufficient funds") {
		return fmt.Errorf("%w: %v", ledger.ErrInsufficientFunds, err)
	}
	if strings.Contains(msg, "invalid sender") || strings.Contains(msg, "invalid signature") {
		return fmt.Errorf("%w: %v", ledger.ErrRejectedSignature, err)
	}
	return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
}
