package bridge

import (
	"fmt"
	"strings"
)

// ParsePayload decodes the "<tag>:<wallet_id>-<recipient>" format carried in
// a wrap deposit's OP_RETURN output or an unwrap burn's nativeAddress bytes.
// wallet_id is capped to MaxWalletIDLen rather than rejected outright, since
// it is an opaque client-chosen label with no consensus-relevant meaning.
func ParsePayload(raw []byte) (tag Tag, walletID, recipient string, err error) {
	s := string(raw)
	tagPart, rest, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", "", fmt.Errorf("bridge: payload %q missing tag separator", s)
	}
	walletID, recipient, ok = strings.Cut(rest, "-")
	if !ok {
		return "", "", "", fmt.Errorf("bridge: payload %q missing wallet/recipient separator", s)
	}
	if walletID == "" || recipient == "" {
		return "", "", "", fmt.Errorf("bridge: payload %q has an empty field", s)
	}
	if len(walletID) > MaxWalletIDLen {
		walletID = walletID[:MaxWalletIDLen]
	}
	return Tag(tagPart), walletID, recipient, nil
}

// EncodePayload is the inverse of ParsePayload, used when constructing the
// unwrap release's OP_RETURN output.
func EncodePayload(tag Tag, walletID, recipient string) string {
	return fmt.Sprintf("%s:%s-%s", tag, walletID, recipient)
}
