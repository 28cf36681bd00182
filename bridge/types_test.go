package bridge

import "testing"

func TestWrapTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to WrapState
		want     bool
	}{
		{WrapNativeBroadcasted, WrapMintingInProgress, true},
		{WrapNativeBroadcasted, WrapFailedInsufficientAmount, true},
		{WrapMintingInProgress, WrapCompleted, true},
		{WrapMintingInProgress, WrapFailedTransactionUnknown, true},
		{WrapNativeBroadcasted, WrapCompleted, false},
		{WrapCompleted, WrapMintingInProgress, false},
		{WrapMintingInProgress, WrapNativeBroadcasted, false},
	}
	for _, c := range cases {
		if got := WrapTransitionAllowed(c.from, c.to); got != c.want {
			t.Errorf("WrapTransitionAllowed(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestUnwrapTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to UnwrapState
		want     bool
	}{
		{UnwrapBurnInitiated, UnwrapBurnConfirming, true},
		{UnwrapBurnInitiated, UnwrapFailedInsufficientFunds, true},
		{UnwrapBurnInitiated, UnwrapFailedTransactionUnknown, true},
		{UnwrapBurnConfirming, UnwrapBurnConfirmed, true},
		{UnwrapBurnConfirmed, UnwrapNativeBroadcasted, true},
		{UnwrapNativeBroadcasted, UnwrapCompleted, true},
		{UnwrapBurnInitiated, UnwrapBurnConfirmed, false},
		{UnwrapCompleted, UnwrapBurnInitiated, false},
	}
	for _, c := range cases {
		if got := UnwrapTransitionAllowed(c.from, c.to); got != c.want {
			t.Errorf("UnwrapTransitionAllowed(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestWrapTerminal(t *testing.T) {
	if WrapTerminal(WrapNativeBroadcasted) {
		t.Error("NATIVE_BROADCASTED should not be terminal")
	}
	if !WrapTerminal(WrapCompleted) {
		t.Error("WRAP_COMPLETED should be terminal")
	}
	if !WrapTerminal(WrapFailedTransactionMaxRetry) {
		t.Error("FAILED_TRANSACTION_MAX_ATTEMPTS should be terminal")
	}
}
