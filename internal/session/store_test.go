package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(2)

	id := store.Create()
	if id == "" {
		t.Fatal("Create() returned empty id")
	}
	if id2 := store.Create(); id2 == id {
		t.Error("Create() returned duplicate ids")
	}

	exchanges, ok := store.Get(id)
	if !ok {
		t.Fatal("Get() did not find created session")
	}
	if len(exchanges) != 0 {
		t.Errorf("new session has %d exchanges", len(exchanges))
	}

	if _, ok := store.Get("unknown"); ok {
		t.Error("Get() found unknown session")
	}
}

func TestStoreHistoryFormat(t *testing.T) {
	store := NewStore(2)
	id := store.Create()

	if got := store.History(id); got != "" {
		t.Errorf("History() of empty session = %q, want empty", got)
	}

	store.AddExchange(id, "What is MCP?", "A protocol.")
	store.AddExchange(id, "Who made it?", "Anthropic.")

	want := "User: What is MCP?\nAssistant: A protocol.\nUser: Who made it?\nAssistant: Anthropic."
	if got := store.History(id); got != want {
		t.Errorf("History() = %q, want %q", got, want)
	}
}

func TestStoreEviction(t *testing.T) {
	store := NewStore(2)
	id := store.Create()

	for i := 1; i <= 4; i++ {
		store.AddExchange(id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	exchanges, _ := store.Get(id)
	if len(exchanges) != 2 {
		t.Fatalf("len(exchanges) = %d, want 2", len(exchanges))
	}
	if exchanges[0].Question != "q3" || exchanges[1].Question != "q4" {
		t.Errorf("kept exchanges = %+v, want the two most recent", exchanges)
	}

	history := store.History(id)
	if strings.Contains(history, "q1") || strings.Contains(history, "q2") {
		t.Errorf("History() still contains evicted exchanges: %q", history)
	}
}

func TestStoreAddExchangeCreatesSession(t *testing.T) {
	store := NewStore(2)
	store.AddExchange("adhoc", "q", "a")
	if got := store.History("adhoc"); got != "User: q\nAssistant: a" {
		t.Errorf("History() = %q", got)
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore(2)
	id := store.Create()
	store.AddExchange(id, "q", "a")

	store.Clear(id)
	if _, ok := store.Get(id); ok {
		t.Error("Get() found cleared session")
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(2)
	id := store.Create()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.AddExchange(id, fmt.Sprintf("q%d", n), "a")
		}(i)
		go func() {
			defer wg.Done()
			_ = store.History(id)
		}()
	}
	wg.Wait()

	exchanges, _ := store.Get(id)
	if len(exchanges) != 2 {
		t.Errorf("len(exchanges) = %d, want bounded to 2", len(exchanges))
	}
}
