package chain

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testSUSDC    = "secret1vkq022x4q8t8kx9de3r84u669l65xnwf2lg3e6"
	testRouter   = "secret1pjhdug87nxzv0esxasmeyfsucaj98pw4334wyc"
)

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := NewWallet(testMnemonic, "", "")
	require.NoError(t, err)
	return w
}

func TestNewWallet(t *testing.T) {
	w := testWallet(t)
	assert.True(t, strings.HasPrefix(w.Address(), "secret1"))

	again, err := NewWallet("  "+strings.ReplaceAll(testMnemonic, " ", "  ")+"\n", DefaultBech32Prefix, DefaultHDPath)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), again.Address())

	other, err := NewWallet(testMnemonic, "", "m/44'/529'/0'/0/1")
	require.NoError(t, err)
	assert.NotEqual(t, w.Address(), other.Address())
}

func TestNewWalletInvalidMnemonic(t *testing.T) {
	_, err := NewWallet("not a real secret phrase", "", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func testRoute() SwapRoute {
	return SwapRoute{
		Token:  Contract{Address: testSUSDC, CodeHash: "tokenhash"},
		Router: Contract{Address: testRouter, CodeHash: "routerhash"},
		Pair:   Contract{Address: "secret1pair", CodeHash: "pairhash"},
	}
}

func TestSwapMsg(t *testing.T) {
	msg, err := testRoute().SwapMsg("secret1sender", "400000")
	require.NoError(t, err)
	assert.Equal(t, testSUSDC, msg.Contract)
	assert.Equal(t, "tokenhash", msg.CodeHash)

	var send snip20Send
	require.NoError(t, json.Unmarshal(msg.Msg, &send))
	assert.Equal(t, testRouter, send.Send.Recipient)
	assert.Equal(t, "routerhash", send.Send.RecipientCodeHash)
	assert.Equal(t, "400000", send.Send.Amount)

	inner, err := base64.StdEncoding.DecodeString(send.Send.Msg)
	require.NoError(t, err)
	var invoke swapInvoke
	require.NoError(t, json.Unmarshal(inner, &invoke))
	require.Len(t, invoke.SwapTokensForExact.Path, 1)
	assert.Equal(t, "secret1pair", invoke.SwapTokensForExact.Path[0].Addr)
}

func TestSwapMsgRejectsBadAmount(t *testing.T) {
	_, err := testRoute().SwapMsg("secret1sender", "4e5")
	assert.Error(t, err)

	_, err = testRoute().SwapMsg("", "1")
	assert.Error(t, err)
}

func TestExecuteMsgMarshal(t *testing.T) {
	w := testWallet(t)
	msg, err := testRoute().SwapMsg(w.Address(), "400000")
	require.NoError(t, err)

	b, err := msg.Marshal()
	require.NoError(t, err)

	fields := map[protowire.Number][]byte{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0)
		require.Equal(t, protowire.BytesType, typ)
		b = b[n:]
		v, n := protowire.ConsumeBytes(b)
		require.GreaterOrEqual(t, n, 0)
		fields[num] = v
		b = b[n:]
	}

	assert.Len(t, fields[1], 20)
	assert.Len(t, fields[2], 20)
	assert.JSONEq(t, string(msg.Msg), string(fields[3]))
	assert.Equal(t, "tokenhash", string(fields[4]))
	assert.NotContains(t, fields, protowire.Number(5))

	anyMsg, err := msg.Any()
	require.NoError(t, err)
	assert.Equal(t, MsgExecuteContractTypeURL, anyMsg.TypeUrl)
}

func TestFeeAmount(t *testing.T) {
	fee := Fee{GasLimit: 3_500_000, GasPrice: 0.1, Denom: "uscrt"}
	assert.Equal(t, "350000uscrt", fee.Amount().String())
}

func TestSignTx(t *testing.T) {
	w := testWallet(t)
	msg, err := testRoute().SwapMsg(w.Address(), "400000")
	require.NoError(t, err)

	fee := Fee{GasLimit: 3_500_000, GasPrice: 0.1, Denom: "uscrt"}
	signer := SignerData{ChainID: "secret-4", AccountNumber: 7, Sequence: 3}
	raw, err := SignTx(w, []ExecuteMsg{msg}, fee, "", signer)
	require.NoError(t, err)

	var tx txtypes.TxRaw
	require.NoError(t, tx.Unmarshal(raw))
	require.Len(t, tx.Signatures, 1)

	var body txtypes.TxBody
	require.NoError(t, body.Unmarshal(tx.BodyBytes))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, MsgExecuteContractTypeURL, body.Messages[0].TypeUrl)

	var authInfo txtypes.AuthInfo
	require.NoError(t, authInfo.Unmarshal(tx.AuthInfoBytes))
	assert.Equal(t, uint64(3_500_000), authInfo.Fee.GasLimit)
	require.Len(t, authInfo.SignerInfos, 1)
	assert.Equal(t, uint64(3), authInfo.SignerInfos[0].Sequence)

	doc := txtypes.SignDoc{
		BodyBytes:     tx.BodyBytes,
		AuthInfoBytes: tx.AuthInfoBytes,
		ChainId:       "secret-4",
		AccountNumber: 7,
	}
	signBytes, err := doc.Marshal()
	require.NoError(t, err)
	assert.True(t, w.PubKey().VerifySignature(signBytes, tx.Signatures[0]))
}
