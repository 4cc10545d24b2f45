package dom

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutationWatcher_DebouncesBursts(t *testing.T) {
	doc := NewStaticDocument("https://portal.example.com")

	var fired atomic.Int32
	w := NewMutationWatcher(doc, 50*time.Millisecond, func() {
		fired.Add(1)
	}, nil)

	w.Start(context.Background())
	defer w.Stop()

	// A burst of content mutations inside one debounce window.
	for i := 0; i < 5; i++ {
		doc.SetText("accounts rendering...")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "burst should collapse to one callback")

	doc.SetText("more accounts")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
}

func TestMutationWatcher_IgnoresNavigationMutations(t *testing.T) {
	doc := NewStaticDocument("https://portal.example.com")

	var fired atomic.Int32
	w := NewMutationWatcher(doc, 20*time.Millisecond, func() {
		fired.Add(1)
	}, nil)

	w.Start(context.Background())
	defer w.Stop()

	doc.Navigate("https://portal.example.com/#/accounts")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
}

func TestMutationWatcher_StopIsIdempotent(t *testing.T) {
	doc := NewStaticDocument("https://portal.example.com")
	w := NewMutationWatcher(doc, 10*time.Millisecond, func() {}, nil)

	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestNavigationWatcher_DetectsURLChangeViaMutation(t *testing.T) {
	doc := NewStaticDocument("https://console.example.com/ec2")

	urls := make(chan string, 4)
	w := NewNavigationWatcher(doc, time.Hour, func(url string) {
		urls <- url
	}, nil)

	w.Start(context.Background())
	defer w.Stop()

	doc.Navigate("https://console.example.com/s3")

	select {
	case url := <-urls:
		assert.Equal(t, "https://console.example.com/s3", url)
	case <-time.After(time.Second):
		t.Fatal("navigation never observed")
	}
}

func TestNavigationWatcher_DetectsSilentHistoryChangeViaPoll(t *testing.T) {
	doc := NewStaticDocument("https://console.example.com/ec2")

	urls := make(chan string, 4)
	w := NewNavigationWatcher(doc, 20*time.Millisecond, func(url string) {
		urls <- url
	}, nil)

	w.Start(context.Background())
	defer w.Stop()

	// Change the URL without emitting any mutation, as a history.pushState
	// transition would.
	doc.mu.Lock()
	doc.url = "https://console.example.com/lambda"
	doc.mu.Unlock()

	select {
	case url := <-urls:
		assert.Equal(t, "https://console.example.com/lambda", url)
	case <-time.After(time.Second):
		t.Fatal("silent navigation never observed")
	}
}

func TestNavigationWatcher_NoCallbackWhenURLStable(t *testing.T) {
	doc := NewStaticDocument("https://console.example.com/ec2")

	var fired atomic.Int32
	w := NewNavigationWatcher(doc, 10*time.Millisecond, func(string) {
		fired.Add(1)
	}, nil)

	w.Start(context.Background())
	defer w.Stop()

	doc.SetText("content mutation, same URL")
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
}

func TestStaticDocument_SubscribeCancelClosesChannel(t *testing.T) {
	doc := NewStaticDocument("https://example.com")

	ch, cancel := doc.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestStaticDocument_QueryAllReturnsCopy(t *testing.T) {
	doc := NewStaticDocument("https://example.com")
	doc.SetElement("div.account", &Element{Text: "a"}, &Element{Text: "b"})

	all := doc.QueryAll("div.account")
	assert.Len(t, all, 2)

	all[0] = nil // mutating the returned slice must not affect the document
	assert.NotNil(t, doc.Query("div.account"))
}
