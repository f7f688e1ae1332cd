package chain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// MsgExecuteContractTypeURL is the Any type URL of a compute execute message.
const MsgExecuteContractTypeURL = "/secret.compute.v1beta1.MsgExecuteContract"

// ExecuteMsg calls a compute contract.
type ExecuteMsg struct {
	Sender    string
	Contract  string
	CodeHash  string
	Msg       json.RawMessage
	SentFunds sdk.Coins
}

// Marshal encodes the message in its protobuf wire form. Sender and contract
// are carried as canonical address bytes.
func (m ExecuteMsg) Marshal() ([]byte, error) {
	sender, err := sdk.GetFromBech32(m.Sender, bech32Prefix(m.Sender))
	if err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	contract, err := sdk.GetFromBech32(m.Contract, bech32Prefix(m.Contract))
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, sender)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, contract)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Msg)
	if m.CodeHash != "" {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, m.CodeHash)
	}
	for _, coin := range m.SentFunds {
		var c []byte
		c = protowire.AppendTag(c, 1, protowire.BytesType)
		c = protowire.AppendString(c, coin.Denom)
		c = protowire.AppendTag(c, 2, protowire.BytesType)
		c = protowire.AppendString(c, coin.Amount.String())
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	}
	return b, nil
}

// Any wraps the encoded message for a transaction body.
func (m ExecuteMsg) Any() (*codectypes.Any, error) {
	value, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	return &codectypes.Any{TypeUrl: MsgExecuteContractTypeURL, Value: value}, nil
}

func bech32Prefix(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '1' {
			return addr[:i]
		}
	}
	return ""
}

// Contract is a deployed contract address with its code hash.
type Contract struct {
	Address  string `json:"addr"`
	CodeHash string `json:"code_hash"`
}

// SwapRoute is the token and router path of the USDC to SCRT swap.
type SwapRoute struct {
	Token  Contract
	Router Contract
	Pair   Contract
}

type swapHop struct {
	Addr     string `json:"addr"`
	CodeHash string `json:"code_hash"`
}

type swapInvoke struct {
	SwapTokensForExact struct {
		ExpectedReturn string    `json:"expected_return"`
		Path           []swapHop `json:"path"`
	} `json:"swap_tokens_for_exact"`
}

type snip20Send struct {
	Send struct {
		Recipient         string `json:"recipient"`
		RecipientCodeHash string `json:"recipient_code_hash,omitempty"`
		Amount            string `json:"amount"`
		Msg               string `json:"msg"`
	} `json:"send"`
}

// SwapMsg sends amount of the route token to the router with an embedded swap
// instruction along the pair.
func (r SwapRoute) SwapMsg(sender, amount string) (ExecuteMsg, error) {
	if sender == "" {
		return ExecuteMsg{}, fmt.Errorf("swap: sender is required")
	}
	if _, ok := sdk.NewIntFromString(amount); !ok {
		return ExecuteMsg{}, fmt.Errorf("swap: invalid amount %q", amount)
	}

	var invoke swapInvoke
	invoke.SwapTokensForExact.ExpectedReturn = "0"
	invoke.SwapTokensForExact.Path = []swapHop{{Addr: r.Pair.Address, CodeHash: r.Pair.CodeHash}}
	inner, err := json.Marshal(invoke)
	if err != nil {
		return ExecuteMsg{}, err
	}

	var send snip20Send
	send.Send.Recipient = r.Router.Address
	send.Send.RecipientCodeHash = r.Router.CodeHash
	send.Send.Amount = amount
	send.Send.Msg = base64.StdEncoding.EncodeToString(inner)
	outer, err := json.Marshal(send)
	if err != nil {
		return ExecuteMsg{}, err
	}

	return ExecuteMsg{
		Sender:   sender,
		Contract: r.Token.Address,
		CodeHash: r.Token.CodeHash,
		Msg:      outer,
	}, nil
}

// BalanceQuery is the SNIP-20 viewing-key balance query.
func BalanceQuery(address, viewingKey string) map[string]any {
	return map[string]any{
		"balance": map[string]string{"address": address, "key": viewingKey},
	}
}
