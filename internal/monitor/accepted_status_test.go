package monitor

import "testing"

func TestStatusAccepted(t *testing.T) {
	list := []string{"2xx", "301", "418"}
	cases := map[int]bool{
		200: true,
		299: true,
		301: true,
		302: false,
		418: true,
		500: false,
	}
	for code, want := range cases {
		if got := StatusAccepted(list, code); got != want {
			t.Errorf("StatusAccepted(%v, %d) = %v, want %v", list, code, got, want)
		}
	}
}

func TestStatusAcceptedEmptyDefaultsToClass2xx(t *testing.T) {
	if !StatusAccepted(nil, 204) {
		t.Error("expected default accept of 2xx when list is empty")
	}
	if StatusAccepted(nil, 404) {
		t.Error("expected default reject of non-2xx when list is empty")
	}
}

func TestStatusAcceptedRange(t *testing.T) {
	list := []string{"500-599"}
	if !StatusAccepted(list, 503) {
		t.Error("expected range to accept 503")
	}
	if StatusAccepted(list, 404) {
		t.Error("expected range to reject 404")
	}
}
