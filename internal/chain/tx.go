package chain

import (
	"fmt"
	"math"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	signingtypes "github.com/cosmos/cosmos-sdk/types/tx/signing"
)

// Fee is a gas limit priced in one denom.
type Fee struct {
	GasLimit uint64
	GasPrice float64
	Denom    string
}

// Amount is the fee charged, rounded up to a whole unit.
func (f Fee) Amount() sdk.Coins {
	amount := int64(math.Ceil(float64(f.GasLimit) * f.GasPrice))
	return sdk.NewCoins(sdk.NewInt64Coin(f.Denom, amount))
}

// SignerData identifies the signing account on chain.
type SignerData struct {
	ChainID       string
	AccountNumber uint64
	Sequence      uint64
}

// SignTx builds and signs a direct-mode transaction, returning the raw tx bytes.
func SignTx(w *Wallet, msgs []ExecuteMsg, fee Fee, memo string, signer SignerData) ([]byte, error) {
	anys := make([]*codectypes.Any, 0, len(msgs))
	for _, m := range msgs {
		a, err := m.Any()
		if err != nil {
			return nil, err
		}
		anys = append(anys, a)
	}

	body := &txtypes.TxBody{Messages: anys, Memo: memo}
	bodyBytes, err := body.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	pubKey, err := codectypes.NewAnyWithValue(w.PubKey())
	if err != nil {
		return nil, fmt.Errorf("pack public key: %w", err)
	}
	authInfo := &txtypes.AuthInfo{
		SignerInfos: []*txtypes.SignerInfo{{
			PublicKey: pubKey,
			ModeInfo: &txtypes.ModeInfo{
				Sum: &txtypes.ModeInfo_Single_{
					Single: &txtypes.ModeInfo_Single{Mode: signingtypes.SignMode_SIGN_MODE_DIRECT},
				},
			},
			Sequence: signer.Sequence,
		}},
		Fee: &txtypes.Fee{Amount: fee.Amount(), GasLimit: fee.GasLimit},
	}
	authInfoBytes, err := authInfo.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal auth info: %w", err)
	}

	signDoc := &txtypes.SignDoc{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainId:       signer.ChainID,
		AccountNumber: signer.AccountNumber,
	}
	signBytes, err := signDoc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal sign doc: %w", err)
	}
	sig, err := w.Sign(signBytes)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	raw := &txtypes.TxRaw{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		Signatures:    [][]byte{sig},
	}
	return raw.Marshal()
}
