package di

import (
	"sync"
	"sync/atomic"
	"testing"
)

type widget struct{ n int }

func TestRegisterToken_LazySingleton(t *testing.T) {
	c := NewContainer()
	tok := NewToken[*widget]("test:widget")

	var builds atomic.Int32
	RegisterToken(c, tok, func(sr ServiceRegistry) *widget {
		builds.Add(1)
		return &widget{n: 7}
	})

	if builds.Load() != 0 {
		t.Fatal("factory must not run before first Get")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w := GetToken(c, tok); w.n != 7 {
				t.Errorf("expected 7, got %d", w.n)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("expected exactly one build, got %d", builds.Load())
	}
}

func TestFactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("config", 3)

	tok := NewToken[*widget]("test:widget")
	RegisterToken(c, tok, func(sr ServiceRegistry) *widget {
		return &widget{n: sr.Get("config").(int) * 2}
	})

	if got := GetToken(c, tok).n; got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestGet_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered service")
		}
	}()
	NewContainer().Get("missing")
}

type greeter interface{ Greet() string }

func TestGetToken_NilInterface(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("test:greeter")
	RegisterToken(c, tok, func(ServiceRegistry) greeter { return nil })

	if got := GetToken(c, tok); got != nil {
		t.Errorf("expected nil interface, got %v", got)
	}
}
