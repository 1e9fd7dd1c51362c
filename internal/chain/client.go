// Package chain talks to the blockchain RPC node: collateral balance reads
// and the ERC-20 fee transfer with bounded confirmation wait.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	clobclient "github.com/polyterm/polyterm/clob/client"
	clobtypes "github.com/polyterm/polyterm/clob/types"
)

const (
	// CollateralDecimals is the USDC base-unit precision.
	CollateralDecimals = 6

	// balanceReadTimeout bounds each RPC balance read. On timeout the caller
	// fails closed: "cannot verify solvency", never "assume solvent".
	balanceReadTimeout = 5 * time.Second

	// balanceReadAttempts bounds retries for the read. Reads are idempotent;
	// nothing else in this package retries.
	balanceReadAttempts = 3

	receiptPollInterval = 2 * time.Second
)

// ErrReverted means the transaction was mined but failed.
var ErrReverted = errors.New("chain: transaction reverted")

// ErrConfirmTimeout means the confirmation wait budget was exhausted.
var ErrConfirmTimeout = errors.New("chain: confirmation wait timed out")

// Client wraps an ethclient connection plus the collateral token bindings.
type Client struct {
	eth        *ethclient.Client
	chainID    *big.Int
	collateral common.Address
	erc20      abi.ABI
}

// Dial connects to the RPC node and resolves the collateral token address
// for the chain.
func Dial(rpcURL string, chainID clobtypes.Chain) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc node: %w", err)
	}
	contracts, err := clobclient.GetContractConfig(chainID)
	if err != nil {
		return nil, err
	}
	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Client{
		eth:        eth,
		chainID:    big.NewInt(int64(chainID)),
		collateral: common.HexToAddress(contracts.Collateral),
		erc20:      erc20,
	}, nil
}

// CollateralBalance reads the address' collateral-token balance in whole
// token units. Bounded retry on transient errors, explicit per-read timeout.
func (c *Client) CollateralBalance(ctx context.Context, address common.Address) (decimal.Decimal, error) {
	data, err := c.erc20.Pack("balanceOf", address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pack balanceOf: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < balanceReadAttempts; attempt++ {
		readCtx, cancel := context.WithTimeout(ctx, balanceReadTimeout)
		result, err := c.eth.CallContract(readCtx, ethereum.CallMsg{
			To:   &c.collateral,
			Data: data,
		}, nil)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		var balance *big.Int
		if err := c.erc20.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
			return decimal.Zero, fmt.Errorf("unpack balanceOf: %w", err)
		}
		return decimal.NewFromBigInt(balance, -CollateralDecimals), nil
	}
	return decimal.Zero, fmt.Errorf("read collateral balance: %w", lastErr)
}

// TransferCollateral builds, signs and broadcasts an ERC-20 transfer of
// `amount` whole tokens to `to`. Returns the transaction hash. Broadcast is
// single-shot: retrying a non-idempotent transfer risks double spends.
func (c *Client) TransferCollateral(
	ctx context.Context,
	key *ecdsa.PrivateKey,
	to common.Address,
	amount decimal.Decimal,
) (common.Hash, error) {
	baseUnits := amount.Shift(CollateralDecimals).Truncate(0).BigInt()
	if baseUnits.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	data, err := c.erc20.Pack("transfer", to, baseUnits)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack transfer: %w", err)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.collateral,
		Data:  data,
		Value: big.NewInt(0),
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, c.collateral, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast transaction: %w", err)
	}
	return signedTx.Hash(), nil
}

// WaitConfirmed polls for the receipt until one confirmation or the wait
// budget runs out. A mined-but-reverted transaction returns ErrReverted.
func (c *Client) WaitConfirmed(ctx context.Context, txHash common.Hash, maxWait time.Duration) (*ethtypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return receipt, ErrReverted
			}
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, ErrConfirmTimeout
		case <-ticker.C:
		}
	}
}
