package event

import "testing"

func TestSignalEmitOrder(t *testing.T) {
	var s Signal[int]
	var got []string

	s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })
	s.Emit(1)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("handlers ran as %v, want [a b]", got)
	}
}

func TestSignalUnsubscribe(t *testing.T) {
	var s Signal[string]
	calls := 0
	unsubscribe := s.Subscribe(func(string) { calls++ })

	s.Emit("x")
	unsubscribe()
	unsubscribe()
	s.Emit("y")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSignalReentrantEmit(t *testing.T) {
	var s Signal[int]
	var seen []int
	s.Subscribe(func(v int) {
		seen = append(seen, v)
		if v < 3 {
			s.Emit(v + 1)
		}
	})

	s.Emit(1)

	if len(seen) != 3 {
		t.Errorf("seen = %v, want [1 2 3]", seen)
	}
}

func TestSignalNilHandler(t *testing.T) {
	var s Signal[int]
	s.Subscribe(nil)()
	s.Emit(1)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSignalClear(t *testing.T) {
	var s Signal[int]
	calls := 0
	s.Subscribe(func(int) { calls++ })
	s.Clear()
	s.Emit(1)
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
