package errs

import (
	"fmt"
	"testing"
)

func TestKindOfUnwraps(t *testing.T) {
	base := New(SlippageExceeded, "bundle rejected").WithHint(300)
	wrapped := fmt.Errorf("composer retry: %w", base)

	if got := KindOf(wrapped); got != SlippageExceeded {
		t.Fatalf("KindOf = %s, want %s", got, SlippageExceeded)
	}
	if !Retryable(KindOf(wrapped)) {
		t.Fatalf("expected %s to be retryable", SlippageExceeded)
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(fmt.Errorf("plain error")); got != Internal {
		t.Fatalf("KindOf = %s, want %s", got, Internal)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		NotFound:         404,
		WalletBusy:       409,
		Validation:       400,
		VenueUnavailable: 503,
		Internal:         502,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}
