package optional

import (
	"errors"
	"testing"
)

func TestValue(t *testing.T) {
	t.Run("None is empty", func(t *testing.T) {
		v := None[int]()
		if !v.Empty() || v.UnwrapOr(7) != 7 {
			t.Fatal("expected an empty value")
		}
		defer func() {
			err, _ := recover().(error)
			if !errors.Is(err, ErrEmpty) {
				t.Fatal("unexpected panic", err)
			}
		}()
		v.Unwrap()
		t.Fatal("Unwrap did not panic")
	})

	t.Run("Some is not empty", func(t *testing.T) {
		v := Some("h")
		if v.Empty() || v.Unwrap() != "h" || v.UnwrapOr("x") != "h" {
			t.Fatal("expected a non-empty value")
		}
	})
}
