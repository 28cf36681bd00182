package smart

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestBurnSelectorMatchesSpec(t *testing.T) {
	sel := BurnSelector()
	if len(sel) != 4 {
		t.Fatalf("len(sel) = %d, want 4", len(sel))
	}
	want := [4]byte{0xfe, 0x9d, 0x93, 0x03} // keccak256("burn(uint256,bytes)")[:4]
	if !bytes.Equal(sel[:], want[:]) {
		t.Fatalf("sel = %x, want %x", sel, want)
	}
}

func TestIsInsufficientBalanceRevert(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"exact selector", []byte{0xe4, 0x50, 0xd3, 0x8c}, true},
		{"selector with trailing data", []byte{0xe4, 0x50, 0xd3, 0x8c, 0x00, 0x01}, true},
		{"different selector", []byte{0x08, 0xc3, 0x79, 0xa0}, false},
		{"too short", []byte{0xe4, 0x50}, false},
		{"empty", nil, false},
	}
	for _, c := range cases {
		if got := IsInsufficientBalanceRevert(c.data); got != c.want {
			t.Errorf("%s: IsInsufficientBalanceRevert(%x) = %v, want %v", c.name, c.data, got, c.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"0x0000000000000000000000000000000000000001", false},
		{"0000000000000000000000000000000000000001", false},
		{"not-an-address", true},
		{"0x1234", true},
	}
	for _, c := range cases {
		_, err := NormalizeAddress(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("NormalizeAddress(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
		}
	}
}

func signTestTx(t *testing.T, key *ecdsa.PrivateKey, chainID *big.Int, inner *types.LegacyTx) *types.Transaction {
	t.Helper()
	signer := types.NewEIP155Signer(chainID)
	tx, err := types.SignNewTx(key, signer, inner)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	return tx
}

func TestDecodeSignedRawLegacy(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sender := crypto.PubkeyToAddress(key.PublicKey)
	chainID := big.NewInt(1337)
	to := common.HexToAddress("0x0000000000000000000000000000000000000042")
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	tx := signTestTx(t, key, chainID, &types.LegacyTx{
		Nonce:    3,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      100000,
		GasPrice: big.NewInt(20_000_000_000),
		Data:     data,
	})

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal binary: %v", err)
	}

	decoded, err := DecodeSignedRaw(raw, chainID)
	if err != nil {
		t.Fatalf("DecodeSignedRaw: %v", err)
	}
	if decoded.Sender != sender {
		t.Errorf("Sender = %s, want %s", decoded.Sender, sender)
	}
	if decoded.To == nil || *decoded.To != to {
		t.Errorf("To = %v, want %s", decoded.To, to)
	}
	if !bytes.Equal(decoded.Data, data) {
		t.Errorf("Data = %x, want %x", decoded.Data, data)
	}
	if decoded.Hash != tx.Hash() {
		t.Errorf("Hash = %s, want %s", decoded.Hash, tx.Hash())
	}
}

func TestDecodeSignedRawDynamicFee(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sender := crypto.PubkeyToAddress(key.PublicKey)
	chainID := big.NewInt(1337)
	to := common.HexToAddress("0x0000000000000000000000000000000000000099")

	signer := types.NewLondonSigner(chainID)
	tx, err := types.SignNewTx(key, signer, &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		To:        &to,
		Value:     big.NewInt(0),
		Gas:       21000,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(30_000_000_000),
		Data:      []byte{0x01, 0x02},
	})
	if err != nil {
		t.Fatalf("sign dynamic fee tx: %v", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal binary: %v", err)
	}

	decoded, err := DecodeSignedRaw(raw, chainID)
	if err != nil {
		t.Fatalf("DecodeSignedRaw: %v", err)
	}
	if decoded.Sender != sender {
		t.Errorf("Sender = %s, want %s", decoded.Sender, sender)
	}
	if decoded.To == nil || *decoded.To != to {
		t.Errorf("To = %v, want %s", decoded.To, to)
	}
}
