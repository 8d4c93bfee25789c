package events

import (
	"errors"
	"testing"
)

func TestSchemeCompleted_Succeeded(t *testing.T) {
	if !(SchemeCompleted{Scheme: "vetVisits"}).Succeeded() {
		t.Error("event without error should succeed")
	}
	if (SchemeCompleted{Scheme: "vetVisits", Err: errors.New("boom")}).Succeeded() {
		t.Error("event with error should not succeed")
	}
}

func TestObserverFunc(t *testing.T) {
	var got []string
	var o Observer = ObserverFunc(func(e SchemeCompleted) {
		got = append(got, e.Scheme)
	})

	o.OnSchemeCompleted(SchemeCompleted{Scheme: "a"})
	o.OnSchemeCompleted(SchemeCompleted{Scheme: "b"})

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}
