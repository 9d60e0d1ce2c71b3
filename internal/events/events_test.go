package events

import (
	"testing"
)

func TestBus(t *testing.T) {
	t.Run("Publish", func(t *testing.T) {
		t.Run("invokes handlers in registration order", func(t *testing.T) {
			bus := NewBus(nil)
			var order []int

			bus.Subscribe(EventLogin, func(any) { order = append(order, 1) })
			bus.Subscribe(EventLogin, func(any) { order = append(order, 2) })
			bus.Subscribe(EventLogin, func(any) { order = append(order, 3) })

			bus.Publish(EventLogin, nil)

			if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
				t.Errorf("expected handlers in order [1 2 3], got %v", order)
			}
		})

		t.Run("delivers the payload", func(t *testing.T) {
			bus := NewBus(nil)
			var got any

			bus.Subscribe(EventSessionChange, func(payload any) { got = payload })
			bus.Publish(EventSessionChange, "hello")

			if got != "hello" {
				t.Errorf("expected payload hello, got %v", got)
			}
		})

		t.Run("does not cross event names", func(t *testing.T) {
			bus := NewBus(nil)
			called := false

			bus.Subscribe(EventLogout, func(any) { called = true })
			bus.Publish(EventLogin, nil)

			if called {
				t.Error("logout handler should not fire for login event")
			}
		})

		t.Run("panicking handler does not block later handlers", func(t *testing.T) {
			bus := NewBus(nil)
			secondRan := false

			bus.Subscribe(EventUnauthorized, func(any) { panic("boom") })
			bus.Subscribe(EventUnauthorized, func(any) { secondRan = true })

			bus.Publish(EventUnauthorized, nil)

			if !secondRan {
				t.Error("second handler should run despite first panicking")
			}
		})

		t.Run("handler may unsubscribe itself mid-publish", func(t *testing.T) {
			bus := NewBus(nil)
			count := 0

			var id Subscription
			id = bus.Subscribe(EventStreamEnded, func(any) {
				count++
				bus.Unsubscribe(EventStreamEnded, id)
			})

			bus.Publish(EventStreamEnded, nil)
			bus.Publish(EventStreamEnded, nil)

			if count != 1 {
				t.Errorf("expected one invocation after self-unsubscribe, got %d", count)
			}
		})

		t.Run("handler may subscribe mid-publish without affecting the current publish", func(t *testing.T) {
			bus := NewBus(nil)
			lateRan := 0

			bus.Subscribe(EventStreamStarted, func(any) {
				bus.Subscribe(EventStreamStarted, func(any) { lateRan++ })
			})

			bus.Publish(EventStreamStarted, nil)
			if lateRan != 0 {
				t.Error("handler registered during publish should not run in that publish")
			}

			bus.Publish(EventStreamStarted, nil)
			if lateRan != 1 {
				t.Errorf("expected late handler to run once on next publish, got %d", lateRan)
			}
		})
	})

	t.Run("Subscribe", func(t *testing.T) {
		t.Run("duplicate function registrations both fire", func(t *testing.T) {
			bus := NewBus(nil)
			count := 0
			fn := func(any) { count++ }

			bus.Subscribe(EventLogin, fn)
			bus.Subscribe(EventLogin, fn)
			bus.Publish(EventLogin, nil)

			if count != 2 {
				t.Errorf("expected both registrations to fire, got %d", count)
			}
		})
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		t.Run("removes only the identified registration", func(t *testing.T) {
			bus := NewBus(nil)
			var order []int

			first := bus.Subscribe(EventLogout, func(any) { order = append(order, 1) })
			bus.Subscribe(EventLogout, func(any) { order = append(order, 2) })

			bus.Unsubscribe(EventLogout, first)
			bus.Publish(EventLogout, nil)

			if len(order) != 1 || order[0] != 2 {
				t.Errorf("expected only second handler, got %v", order)
			}
		})

		t.Run("unknown id is a no-op", func(t *testing.T) {
			bus := NewBus(nil)
			bus.Unsubscribe(EventLogout, 42)
		})
	})
}
